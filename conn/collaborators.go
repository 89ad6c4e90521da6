package conn

import "time"

// DatagramSink is the external collaborator that puts bytes on the wire.
// SendDatagram is best-effort: a returned error is treated as a transient
// drop (logged by the caller, never fatal) — the packet stays in the
// retransmission buffer and the timer will resend it.
type DatagramSink interface {
	SendDatagram(b []byte) error
}

// AppSource is the external collaborator that supplies outbound bytes from
// the application. ReadFromApp returns (n, false) for n>0 bytes read right
// now, (0, false) when no data is available yet (the caller must be
// re-invoked on the next app-readable event), or (0, true) once the source
// has reached end-of-stream.
type AppSource interface {
	ReadFromApp(buf []byte) (n int, eof bool)
}

// AppSink is the external collaborator that accepts inbound, in-order bytes
// for the application. FreeSpace reports how many bytes WriteToApp may be
// called with right now.
type AppSink interface {
	FreeSpace() int
	WriteToApp(b []byte)
}

// Checksum is the external checksum primitive (§6). The caller must zero
// the checksum field before invoking it, both to compute and to verify.
type Checksum func(b []byte) uint16

// Clock returns the current time; a collaborator so tests can control it.
type Clock func() time.Time

// Collaborators bundles the external interfaces a Connection is built
// against, plus the fixed per-connection configuration.
type Collaborators struct {
	Datagram DatagramSink
	Source   AppSource
	Sink     AppSink
	Checksum Checksum
	Now      Clock

	// WindowSize is the maximum number of unacknowledged packets allowed
	// outstanding in either direction.
	WindowSize uint32

	// Timeout is the fixed retransmission timeout.
	Timeout time.Duration
}
