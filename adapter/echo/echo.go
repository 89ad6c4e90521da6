// Package echo implements an in-process app source/sink pair that mirrors
// whatever bytes a Connection delivers back out as that same Connection's
// own outbound stream. It plays the AppSource/AppSink role adapter/stdio
// plays for a single process's standard streams, but the "other end" here
// is just a queue fed by the Connection's own delivery path instead of an
// io.Reader/io.Writer.
package echo

import "sync"

// bufCap bounds how many delivered-but-not-yet-echoed bytes a Pipe holds;
// sized well above a single connection's window so FreeSpace is rarely the
// limiting factor.
const bufCap = 1 << 16

// connection is satisfied by *conn.Connection. Kept narrow here, rather
// than importing the conn package, since Pipe only needs the one fact from
// it: whether the peer's EOF has arrived.
type connection interface {
	PeerEOF() bool
}

// Pipe implements both conn.AppSink (FreeSpace/WriteToApp) and
// conn.AppSource (ReadFromApp) over a single chunk queue: bytes the owning
// Connection delivers to the sink side are drained straight back out on
// the source side, the same queue-of-chunks shape as adapter/stdio's
// Source and Sink. Bind must be called once, right after the owning
// Connection is constructed, so ReadFromApp can observe the peer's EOF.
type Pipe struct {
	mu     sync.Mutex
	chunks [][]byte
	conn   connection
}

// NewPipe returns an unbound Pipe; call Bind before driving a Connection
// with it.
func NewPipe() *Pipe {
	return &Pipe{}
}

// Bind records the Connection this Pipe echoes for.
func (p *Pipe) Bind(c connection) {
	p.conn = c
}

// FreeSpace implements conn.AppSink.
func (p *Pipe) FreeSpace() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	buffered := 0
	for _, c := range p.chunks {
		buffered += len(c)
	}
	if buffered >= bufCap {
		return 0
	}
	return bufCap - buffered
}

// WriteToApp implements conn.AppSink: queue b to be echoed back out.
func (p *Pipe) WriteToApp(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	p.chunks = append(p.chunks, append([]byte(nil), b...))
	p.mu.Unlock()
}

// ReadFromApp implements conn.AppSource: drain whatever WriteToApp has
// queued. Once the queue is empty and the peer's own EOF has been fully
// delivered, ReadFromApp reports end-of-stream, so the echoed bytes are
// followed by this connection's own EOF instead of the connection hanging
// open forever.
func (p *Pipe) ReadFromApp(buf []byte) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.chunks) == 0 {
		return 0, p.conn != nil && p.conn.PeerEOF()
	}
	n := copy(buf, p.chunks[0])
	if n == len(p.chunks[0]) {
		p.chunks = p.chunks[1:]
	} else {
		p.chunks[0] = p.chunks[0][n:]
	}
	return n, false
}
