package recvbuf_test

import (
	"testing"

	"github.com/Hubold17/reliable-project/recvbuf"
)

func TestInsertContainsFirst(t *testing.T) {
	b := recvbuf.New()
	b.Insert(2, []byte("b"), false)
	b.Insert(1, []byte("a"), false)

	if !b.Contains(1) || !b.Contains(2) {
		t.Fatalf("expected both seqnos present")
	}
	if got := b.First().Seqno; got != 1 {
		t.Fatalf("got first seqno %d, want 1 (out-of-order insert must still sort)", got)
	}
}

func TestInsertDuplicateIgnored(t *testing.T) {
	b := recvbuf.New()
	b.Insert(1, []byte("a"), false)
	b.Insert(1, []byte("b"), false)

	if b.Len() != 1 {
		t.Fatalf("got len %d, want 1 after duplicate insert", b.Len())
	}
	if string(b.First().Payload) != "a" {
		t.Fatalf("duplicate insert must not replace the original entry")
	}
}

func TestRemoveFirstAdvances(t *testing.T) {
	b := recvbuf.New()
	b.Insert(1, nil, false)
	b.Insert(2, nil, false)

	b.RemoveFirst()
	if b.Contains(1) {
		t.Fatalf("seqno 1 should have been removed")
	}
	if got := b.First().Seqno; got != 2 {
		t.Fatalf("got first seqno %d, want 2", got)
	}
}

func TestPartialConsumeCursor(t *testing.T) {
	b := recvbuf.New()
	b.Insert(1, []byte("hello world"), false)

	e := b.First()
	e.Consume(6)
	if string(e.Pending()) != "world" {
		t.Fatalf("got pending %q, want %q", e.Pending(), "world")
	}
	if e.Remaining != 5 {
		t.Fatalf("got remaining %d, want 5", e.Remaining)
	}
}

func TestIterateInOrder(t *testing.T) {
	b := recvbuf.New()
	for _, s := range []uint32{5, 3, 4, 1, 2} {
		b.Insert(s, nil, false)
	}

	var seen []uint32
	b.Iterate(func(e *recvbuf.Entry) { seen = append(seen, e.Seqno) })
	for i, s := range seen {
		if s != uint32(i)+1 {
			t.Fatalf("got order %v, want 1..5", seen)
		}
	}
}

func TestEmpty(t *testing.T) {
	b := recvbuf.New()
	if !b.Empty() {
		t.Fatalf("new buffer should be empty")
	}
	b.Insert(1, nil, true)
	if b.Empty() {
		t.Fatalf("buffer with one entry should not be empty")
	}
}
