package conn

// OnAppWritable is triggered when the app sink reports newly available
// space. The same delivery path (deliver) is also run internally after
// enqueueing an in-order packet into the reassembly buffer (spec §4.6).
func (c *Connection) OnAppWritable() {
	c.deliver()
}

// deliver implements spec §4.6: walk the reassembly buffer from its head,
// writing whatever is in order and fits into the app sink, ACKing before
// each full delivery (see SPEC_FULL.md for the ACK-before-output ordering
// choice), and stopping at the first gap or the first sink-full condition.
func (c *Connection) deliver() {
	for {
		e := c.recvBuf.First()
		if e == nil {
			return
		}
		if e.Seqno >= c.rcvNxt {
			// rcvNxt's advance in handleData has already happened;
			// a head entry still at or past rcvNxt means the rest
			// of the buffer is gapped.
			return
		}

		free := c.Sink.FreeSpace()
		pending := e.Remaining

		switch {
		case pending <= free:
			c.sendRaw(c.encodeAck())
			c.Sink.WriteToApp(e.Pending())
			c.recvBuf.RemoveFirst()
			c.outputReady = true
			c.maybeTeardown()
			// continue: more entries may now be in order and fit.
		case free > 0:
			c.Sink.WriteToApp(e.Pending()[:free])
			e.Consume(free)
			c.outputReady = false
			return
		default:
			return
		}
	}
}
