// Package conn implements a reliable, in-order byte-stream protocol on top
// of an unreliable datagram transport: the sliding-window send/receive
// state machine, the retransmission timer logic, the reassembly/delivery
// pipeline with flow control against a downstream application buffer, and
// the shutdown protocol.
//
// It mirrors the shape of yustack's transport/tcp package (an endpoint
// struct plus sender/receiver-style helpers), generalized from TCP's
// syn/fin handshake to this protocol's simpler four-condition teardown, and
// consumes its external collaborators (datagram I/O, app source/sink,
// checksum, clock) through the narrow interfaces in collaborators.go rather
// than reaching for real sockets or stdio directly, keeping this package
// free of goroutines and blocking I/O of its own.
package conn

import (
	"log"

	"github.com/Hubold17/reliable-project/recvbuf"
	"github.com/Hubold17/reliable-project/sendbuf"
	"github.com/Hubold17/reliable-project/wire"
)

// Connection holds all per-connection mutable state. Sequence numbers on
// both sides begin at 1, as spec §3 specifies.
type Connection struct {
	Collaborators

	sndUna uint32
	sndNxt uint32
	rcvNxt uint32

	sendBuf sendbuf.Buffer
	recvBuf *recvbuf.Buffer

	readEOFFromInput      bool
	readEOFFromConnection bool
	outputReady           bool

	torndown bool
}

// New creates a connection ready to send and receive starting at sequence
// number 1 on both sides.
func New(c Collaborators) *Connection {
	return &Connection{
		Collaborators: c,
		sndUna:        1,
		sndNxt:        1,
		rcvNxt:        1,
		recvBuf:       recvbuf.New(),
		outputReady:   true,
	}
}

// SndUna returns the oldest sequence number sent but not yet acknowledged.
func (c *Connection) SndUna() uint32 { return c.sndUna }

// SndNxt returns the next sequence number to assign to a new outbound
// packet.
func (c *Connection) SndNxt() uint32 { return c.sndNxt }

// RcvNxt returns the next sequence number expected from the peer.
func (c *Connection) RcvNxt() uint32 { return c.rcvNxt }

// SendBufferLen returns the number of entries currently awaiting
// acknowledgement.
func (c *Connection) SendBufferLen() int { return c.sendBuf.Len() }

// RecvBufferLen returns the number of entries currently awaiting delivery.
func (c *Connection) RecvBufferLen() int { return c.recvBuf.Len() }

// TornDown reports whether all four lifecycle conditions (spec §3) have
// been observed to hold and the connection has been released.
func (c *Connection) TornDown() bool { return c.torndown }

// PeerEOF reports whether the peer's EOF packet has been received and fully
// delivered to the app sink. An application layered on top of a Connection
// (such as an echo app mirroring delivered bytes back out) uses this to
// learn when it should, in turn, signal its own end of output.
func (c *Connection) PeerEOF() bool { return c.readEOFFromConnection && c.recvBuf.Empty() }

func (c *Connection) encodeAck() []byte {
	return wire.EncodeAck(c.rcvNxt, c.Checksum)
}

func (c *Connection) sendRaw(b []byte) {
	if err := c.Datagram.SendDatagram(b); err != nil {
		log.Printf("conn: send failed, will be retried by timer: %v", err)
	}
}
