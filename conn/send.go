package conn

import "github.com/Hubold17/reliable-project/wire"

// OnAppReadable is triggered when the app source has data available. The
// same send path (trySend) is also run internally once the send window
// advances (spec §4.5).
func (c *Connection) OnAppReadable() {
	c.trySend()
}

// trySend implements spec §4.5: pull data from the app source while the
// send window has room, packetise it, buffer it for retransmission, and
// hand it to the datagram sink.
func (c *Connection) trySend() {
	for {
		avail := c.WindowSize - (c.sndNxt - c.sndUna)
		if avail == 0 || c.readEOFFromInput {
			return
		}

		buf := make([]byte, wire.MaxPayload)
		n, eof := c.Source.ReadFromApp(buf)

		var encoded []byte
		switch {
		case eof:
			c.readEOFFromInput = true
			encoded = wire.EncodeData(c.sndNxt, nil, c.Checksum)
		case n == 0:
			return
		default:
			encoded = wire.EncodeData(c.sndNxt, buf[:n], c.Checksum)
		}

		seqno := c.sndNxt
		c.sndNxt++

		c.sendBuf.Insert(seqno, encoded, c.Now())
		c.sendRaw(encoded)
	}
}
