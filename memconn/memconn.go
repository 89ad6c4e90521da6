// Package memconn provides an in-process, queue-backed implementation of
// conn.DatagramSink for integration tests that want two Connection values
// talking to each other without a real socket. It plays the same role as
// yustack's link/channel endpoint — a link layer that stores outbound units
// in a channel instead of writing them to a device — narrowed from whole
// network packets down to this protocol's raw encoded datagrams, and with
// datagram drop, duplication, and reorder/delay all injectable for
// exercising the retransmission and reassembly paths under adversarial
// delivery.
package memconn

import (
	"math/rand"
)

// Pipe is one direction of an in-process datagram link: every SendDatagram
// call is queued here until Drain delivers it to the peer's OnPacket.
type Pipe struct {
	queue [][]byte
	held  [][]byte // datagrams deferred by ReorderRate, rolled again on the next Drain

	// DropRate, if non-zero, is the fraction (0..1) of datagrams silently
	// dropped on Drain instead of delivered — for exercising retransmission.
	DropRate float64

	// DupRate, if non-zero, is the fraction (0..1) of datagrams delivered
	// twice on Drain — for exercising duplicate-seqno handling on the
	// receive side.
	DupRate float64

	// ReorderRate, if non-zero, is the fraction (0..1) of datagrams held
	// back until the next Drain instead of delivered immediately. A held
	// datagram goes through the drop, duplicate and reorder rolls again on
	// that Drain, so it may be held back more than once.
	// Combined with datagrams queued in the meantime, this both delays a
	// datagram and reorders it relative to whatever was sent after it.
	ReorderRate float64

	rng *rand.Rand
}

// NewPipe returns an empty Pipe. r seeds drop/duplicate/reorder decisions;
// pass nil for a pipe that always delivers exactly once, in order.
func NewPipe(r *rand.Rand) *Pipe {
	return &Pipe{rng: r}
}

// SendDatagram implements conn.DatagramSink by enqueueing b for later
// delivery via Drain.
func (p *Pipe) SendDatagram(b []byte) error {
	p.queue = append(p.queue, append([]byte(nil), b...))
	return nil
}

// Pending reports how many datagrams are queued or held back for delivery.
func (p *Pipe) Pending() int { return len(p.queue) + len(p.held) }

// Drain hands every datagram held back by a prior Drain, followed by every
// datagram queued since, to deliver — dropping, duplicating, or deferring
// each one first according to DropRate, DupRate, and ReorderRate. Callers
// loop until Pending returns 0 across both directions of a Pair, since a
// deferred datagram, or one enqueued by deliver itself (e.g. an immediate
// ACK), is not necessarily drained in the same call.
func (p *Pipe) Drain(deliver func(b []byte)) {
	q := append(p.held, p.queue...)
	p.held = nil
	p.queue = nil

	for _, b := range q {
		if p.roll(p.DropRate) {
			continue
		}
		if p.roll(p.ReorderRate) {
			p.held = append(p.held, b)
			continue
		}
		deliver(b)
		if p.roll(p.DupRate) {
			deliver(b)
		}
	}
}

// roll reports whether a rate-gated event fires this call.
func (p *Pipe) roll(rate float64) bool {
	return p.rng != nil && rate > 0 && p.rng.Float64() < rate
}

// Pair is two Pipes wired so that whatever A sends is meant for B and vice
// versa, giving each side's Connection a DatagramSink that hands its
// outbound bytes straight to the other side's inbox.
type Pair struct {
	AtoB *Pipe
	BtoA *Pipe
}

// NewPair returns a fresh, empty Pair with no datagram loss.
func NewPair() *Pair {
	return &Pair{AtoB: NewPipe(nil), BtoA: NewPipe(nil)}
}

// Pump drains both directions of p once, handing A's outbound datagrams to
// onB and B's outbound datagrams to onA. Callers typically loop Pump until
// both pipes report zero Pending and both connections report torn down.
func (p *Pair) Pump(onB, onA func(b []byte)) {
	p.AtoB.Drain(onB)
	p.BtoA.Drain(onA)
}
