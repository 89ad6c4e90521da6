// Package recvbuf implements the reassembly buffer: the ordered collection
// of received data/EOF packets not yet fully delivered to the application.
//
// The teacher's receiver (transport/tcp/rcv.go) names this role
// "pendingRcvdSegments segmentHeap", but the generated segmentHeap type
// backing it was not part of the retrieved slice of the repository (it's a
// template-generated file outside the retrieval window). This package
// reconstructs the same "ordered container keyed by seqno, cheap
// min-extraction" role with the standard library's container/heap, which is
// the ordinary idiomatic Go tool for exactly that job and needs no
// third-party dependency.
package recvbuf

import "container/heap"

// Entry is one received, not-yet-delivered data or EOF packet. Remaining
// tracks how much of Payload is still owed to the app sink: rather than
// shifting payload bytes in place after a partial delivery (what the
// original C implementation does), a cursor is kept and only the
// unconsumed tail is ever handed to the sink. This is the cleaner of the
// two options the spec's design notes call out for this exact point.
type Entry struct {
	Seqno     uint32
	Payload   []byte
	IsEOF     bool
	Remaining int // number of unconsumed bytes at the tail of Payload
}

func newEntry(seqno uint32, payload []byte, isEOF bool) *Entry {
	return &Entry{Seqno: seqno, Payload: payload, IsEOF: isEOF, Remaining: len(payload)}
}

// Consume marks n bytes (from the front of the unconsumed region) as
// delivered.
func (e *Entry) Consume(n int) {
	e.Remaining -= n
}

// Pending returns the slice of Payload still owed to the sink.
func (e *Entry) Pending() []byte {
	return e.Payload[len(e.Payload)-e.Remaining:]
}

// Buffer holds at most windowSize entries, ordered by seqno ascending.
type Buffer struct {
	h    entryHeap
	byID map[uint32]*Entry
}

// New creates an empty reassembly buffer.
func New() *Buffer {
	return &Buffer{byID: make(map[uint32]*Entry)}
}

// Contains reports whether seqno is already buffered.
func (b *Buffer) Contains(seqno uint32) bool {
	_, ok := b.byID[seqno]
	return ok
}

// Insert adds a received packet if its seqno isn't already present.
func (b *Buffer) Insert(seqno uint32, payload []byte, isEOF bool) {
	if b.Contains(seqno) {
		return
	}
	e := newEntry(seqno, payload, isEOF)
	b.byID[seqno] = e
	heap.Push(&b.h, e)
}

// First returns the lowest-seqno entry, or nil if the buffer is empty.
func (b *Buffer) First() *Entry {
	if len(b.h) == 0 {
		return nil
	}
	return b.h[0]
}

// RemoveFirst removes the lowest-seqno entry.
func (b *Buffer) RemoveFirst() {
	if len(b.h) == 0 {
		return
	}
	e := heap.Pop(&b.h).(*Entry)
	delete(b.byID, e.Seqno)
}

// Empty reports whether the buffer holds no entries.
func (b *Buffer) Empty() bool {
	return len(b.h) == 0
}

// Len reports the number of buffered entries.
func (b *Buffer) Len() int {
	return len(b.h)
}

// Iterate walks the buffer in seqno order.
func (b *Buffer) Iterate(fn func(*Entry)) {
	ordered := append(entryHeap(nil), b.h...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Seqno < ordered[j-1].Seqno; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, e := range ordered {
		fn(e)
	}
}

// entryHeap is a container/heap.Interface over *Entry keyed by Seqno.
type entryHeap []*Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Seqno < h[j].Seqno }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(*Entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
