package conn

import (
	"time"

	"github.com/Hubold17/reliable-project/sendbuf"
)

// OnTimerTick implements spec §4.8: walk the retransmission buffer in
// order, resending verbatim any entry whose timeout has elapsed. It does
// not cap retransmit count — an unresponsive peer is retried indefinitely,
// by design (spec §4.8, §5).
func (c *Connection) OnTimerTick(now time.Time) {
	c.sendBuf.Iterate(func(e *sendbuf.Entry) {
		if now.Sub(e.LastSent) >= c.Timeout {
			c.sendRaw(e.Encoded)
			e.LastSent = now
		}
	})
}
