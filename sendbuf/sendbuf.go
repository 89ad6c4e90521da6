// Package sendbuf implements the retransmission buffer: the ordered
// collection of outbound packets that have been sent but not yet
// acknowledged. It is generated in the same non-generic, per-payload-type
// intrusive-list idiom as yustack's transport/udp/udp_packet_list.go,
// specialized to the (encoded packet, last-retransmit timestamp) entry this
// protocol needs instead of using the interface-based generic ilist.List.
package sendbuf

import "time"

// Entry is one unacknowledged outbound packet.
type Entry struct {
	entryLinks

	Seqno     uint32
	Encoded   []byte
	LastSent  time.Time
}

// Buffer holds entries ordered by seqno ascending. Since seqnos are
// assigned strictly monotonically and entries are only ever appended after
// the current tail, appending at the tail keeps the ordering invariant
// without an explicit sort.
type Buffer struct {
	head *Entry
	tail *Entry
	n    int
}

// Insert appends a newly-sent packet to the tail of the buffer.
func (b *Buffer) Insert(seqno uint32, encoded []byte, now time.Time) *Entry {
	e := &Entry{Seqno: seqno, Encoded: encoded, LastSent: now}
	e.setNext(nil)
	e.setPrev(b.tail)
	if b.tail != nil {
		b.tail.setNext(e)
	} else {
		b.head = e
	}
	b.tail = e
	b.n++
	return e
}

// First returns the oldest unacknowledged entry, or nil if the buffer is
// empty.
func (b *Buffer) First() *Entry {
	return b.head
}

// Empty reports whether the buffer holds no unacknowledged entries.
func (b *Buffer) Empty() bool {
	return b.head == nil
}

// Len reports the number of entries currently buffered.
func (b *Buffer) Len() int {
	return b.n
}

// RemoveFirst removes the oldest entry.
func (b *Buffer) RemoveFirst() {
	if b.head != nil {
		b.remove(b.head)
	}
}

// RemoveAcked removes every entry with Seqno < ackno and returns how many
// were removed.
func (b *Buffer) RemoveAcked(ackno uint32) int {
	removed := 0
	for e := b.head; e != nil; {
		next := e.next
		if e.Seqno < ackno {
			b.remove(e)
			removed++
		}
		e = next
	}
	return removed
}

// Iterate walks the buffer in seqno order, calling fn for each entry. It is
// safe for fn to be called for every entry even if fn inspects or mutates
// per-entry state (it must not remove entries mid-walk; use RemoveAcked for
// bulk removal instead).
func (b *Buffer) Iterate(fn func(*Entry)) {
	for e := b.head; e != nil; e = e.next {
		fn(e)
	}
}

func (b *Buffer) remove(e *Entry) {
	prev := e.prev
	next := e.next

	if prev != nil {
		prev.setNext(next)
	} else {
		b.head = next
	}
	if next != nil {
		next.setPrev(prev)
	} else {
		b.tail = prev
	}
	e.setNext(nil)
	e.setPrev(nil)
	b.n--
}

// entryLinks gives Entry O(1) insertion/removal without a generic list
// package, same intrusive-pointer technique as udpPacketEntry in the
// teacher's transport/udp package.
type entryLinks struct {
	next *Entry
	prev *Entry
}

func (e *Entry) setNext(entry *Entry) { e.next = entry }
func (e *Entry) setPrev(entry *Entry) { e.prev = entry }
