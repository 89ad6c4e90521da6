package conn

// maybeTeardown implements spec §4.7: if all four lifecycle conditions
// (spec §3) hold, mark the connection torn down. It is idempotent and safe
// to call after any event that might satisfy the conditions; otherwise it
// is a no-op and the connection awaits another event.
func (c *Connection) maybeTeardown() {
	if c.torndown {
		return
	}
	if !c.readEOFFromConnection || !c.readEOFFromInput {
		return
	}
	if !c.sendBuf.Empty() || !c.recvBuf.Empty() {
		return
	}
	c.torndown = true
}
