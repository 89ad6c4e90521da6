package conn

import "github.com/Hubold17/reliable-project/wire"

// OnPacket handles one inbound datagram: decode, validate, and dispatch to
// the send or receive side. Corrupt, short, or length-mismatched packets
// are silently dropped (spec §4.1, §7) — the codec and this handler never
// signal an error upward.
func (c *Connection) OnPacket(data []byte, n int) {
	p, ok := wire.Decode(data, n, c.Checksum)
	if !ok {
		return
	}

	if p.IsAck {
		c.handleAck(p.Ackno)
		return
	}
	c.handleData(p)
}

// handleAck implements spec §4.4's ACK branch.
func (c *Connection) handleAck(ackno uint32) {
	a := ackno
	if c.sndNxt < a {
		a = c.sndNxt
	}
	if a > c.sndUna {
		c.sndUna = a
	}

	if removed := c.sendBuf.RemoveAcked(ackno); removed > 0 {
		c.trySend()
	}
	c.maybeTeardown()
}

// handleData implements spec §4.4's data/EOF branch.
func (c *Connection) handleData(p wire.Packet) {
	if p.Seqno >= c.rcvNxt+c.WindowSize {
		// Outside the receive window; drop.
		return
	}
	if p.IsEOF {
		c.readEOFFromConnection = true
	}

	if p.Seqno >= c.rcvNxt && !c.recvBuf.Contains(p.Seqno) {
		c.recvBuf.Insert(p.Seqno, p.Payload, p.IsEOF)
	}

	if p.Seqno != c.rcvNxt {
		// Out-of-order, or a duplicate below rcvNxt: emit a duplicate
		// cumulative ACK immediately; don't re-enter the buffer (the
		// Insert above already guarded against that for the
		// below-rcvNxt case via Contains/seqno comparison).
		c.sendRaw(c.encodeAck())
		return
	}

	// seqno == rcvNxt: advance past every contiguous entry currently
	// buffered starting at rcvNxt, then hand off to delivery. The ACK for
	// this advance is emitted by deliver() once at least one byte (or the
	// EOF marker) has actually been delivered.
	for c.recvBuf.Contains(c.rcvNxt) {
		c.rcvNxt++
	}
	c.deliver()
}
