// Package waiter provides a wait queue so the event loop can be notified
// by the adapter layer (adapter/stdio) when one of this
// protocol's readiness conditions changes, instead of polling. It is
// yustack's intrusive, zero-allocation channel-notify wait queue, narrowed
// from generic poll()-style event masks down to this protocol's three event
// loop triggers.
package waiter

import (
	"sync"

	"github.com/Hubold17/reliable-project/ilist"
)

// EventMask identifies one of this protocol's readiness conditions.
type EventMask uint16

const (
	// EventAppReadable fires when the app source has more bytes, or EOF.
	EventAppReadable EventMask = 1 << iota

	// EventAppWritable fires when the app sink has freed up space.
	EventAppWritable

	// EventDatagram fires when an inbound datagram is ready to be read.
	EventDatagram
)

// EntryCallback provides a notify callback.
type EntryCallback interface {
	// Callback is invoked when the waiter entry it's attached to is
	// notified. It must do minimal work and must not call back into the
	// Queue that is notifying it — the queue's lock is held while it runs.
	Callback(e *Entry)
}

// Entry represents a waiter that can be added to a Queue. It can only be
// in one queue at a time, and is added intrusively with no extra
// allocation.
type Entry struct {
	// Context stores whatever state the callback needs at wake-up time.
	Context interface{}

	Callback EntryCallback

	mask EventMask
	ilist.Entry
}

type channelCallback struct{}

func (*channelCallback) Callback(e *Entry) {
	ch := e.Context.(chan struct{})
	select {
	case ch <- struct{}{}:
	default:
	}
}

// NewChannelEntry returns an Entry that does a non-blocking send on a
// struct{} channel when notified, allocating the channel if c is nil. This
// is how adapter/stdio bridges OS-level readiness (a pipe has bytes) into
// something the event loop can select on.
func NewChannelEntry(c chan struct{}) (Entry, chan struct{}) {
	if c == nil {
		c = make(chan struct{}, 1)
	}
	return Entry{Context: c, Callback: &channelCallback{}}, c
}

// Queue holds the waiters to notify when events of interest occur. The
// zero value is an empty, ready-to-use queue.
type Queue struct {
	list ilist.List
	mu   sync.RWMutex
}

// EventRegister adds e to the queue; e is notified on any event in mask.
func (q *Queue) EventRegister(e *Entry, mask EventMask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.mask = mask
	q.list.PushBack(e)
}

// EventUnregister removes e from the queue.
func (q *Queue) EventUnregister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Remove(e)
}

// Notify wakes every registered waiter whose mask intersects mask.
func (q *Queue) Notify(mask EventMask) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for it := q.list.Front(); it != nil; it = it.Next() {
		e := it.(*Entry)
		if mask&e.mask != 0 {
			e.Callback.Callback(e)
		}
	}
}
