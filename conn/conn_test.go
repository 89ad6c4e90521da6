package conn_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/Hubold17/reliable-project/conn"
	"github.com/Hubold17/reliable-project/wire"
)

// fakeSource hands out queued chunks, then 0,false until eof is armed.
type fakeSource struct {
	chunks [][]byte
	i      int
	eof    bool
}

func (f *fakeSource) ReadFromApp(buf []byte) (int, bool) {
	if f.i >= len(f.chunks) {
		return 0, f.eof
	}
	n := copy(buf, f.chunks[f.i])
	f.i++
	return n, false
}

type fakeSink struct {
	free    int
	written bytes.Buffer
}

func (f *fakeSink) FreeSpace() int        { return f.free }
func (f *fakeSink) WriteToApp(b []byte)   { f.written.Write(b) }

type fakeDatagram struct {
	sent [][]byte
}

func (f *fakeDatagram) SendDatagram(b []byte) error {
	f.sent = append(f.sent, append([]byte(nil), b...))
	return nil
}

func clockAt(t time.Time) conn.Clock {
	return func() time.Time { return t }
}

func newTestConn(window uint32, timeout time.Duration, src *fakeSource, sink *fakeSink, dg conn.DatagramSink, now time.Time) *conn.Connection {
	return conn.New(conn.Collaborators{
		Datagram:   dg,
		Source:     src,
		Sink:       sink,
		Checksum:   wire.Checksum,
		Now:        clockAt(now),
		WindowSize: window,
		Timeout:    timeout,
	})
}

// S1 — clean single packet.
func TestScenarioCleanSinglePacket(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{[]byte("hi")}, eof: true}
	sink := &fakeSink{free: 1 << 20}
	dg := &fakeDatagram{}
	c := newTestConn(1, time.Second, src, sink, dg, time.Now())

	c.OnAppReadable() // sends seqno=1 "hi"
	if len(dg.sent) != 1 {
		t.Fatalf("got %d packets sent, want 1 (window=1 should stall after one)", len(dg.sent))
	}
	if got := wire.Len(dg.sent[0]); got != wire.DataHeaderSize+2 {
		t.Fatalf("got len %d, want %d", got, wire.DataHeaderSize+2)
	}

	// Peer acks seqno 2 (i.e. our "hi" packet), opening the window for our EOF.
	ack := wire.EncodeAck(2, wire.Checksum)
	c.OnPacket(ack, len(ack))
	if len(dg.sent) != 2 {
		t.Fatalf("got %d packets sent after ack, want 2 (our EOF should follow)", len(dg.sent))
	}
	if got := wire.Len(dg.sent[1]); got != wire.DataHeaderSize {
		t.Fatalf("got len %d, want %d (EOF packet)", got, wire.DataHeaderSize)
	}

	// Peer sends its own EOF at seqno=1 (it had nothing to say).
	peerEOF := wire.EncodeData(1, nil, wire.Checksum)
	c.OnPacket(peerEOF, len(peerEOF))
	if sink.written.Len() != 0 {
		t.Fatalf("got %d bytes delivered, want 0 (peer sent nothing)", sink.written.Len())
	}
	if c.TornDown() {
		t.Fatalf("connection tore down before our own EOF was acked")
	}

	// Peer finally acks our EOF (seqno 2); now all four conditions hold.
	ack2 := wire.EncodeAck(3, wire.Checksum)
	c.OnPacket(ack2, len(ack2))
	if !c.TornDown() {
		t.Fatalf("connection should have torn down once its own EOF was acked")
	}
}

// S2 — duplicate ACK.
func TestScenarioDuplicateAck(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{[]byte("x")}}
	sink := &fakeSink{free: 1 << 20}
	dg := &fakeDatagram{}
	c := newTestConn(2, time.Second, src, sink, dg, time.Now())

	c.OnAppReadable()
	if c.SndUna() != 1 {
		t.Fatalf("got sndUna %d, want 1 before any ack", c.SndUna())
	}

	ack := wire.EncodeAck(2, wire.Checksum)
	c.OnPacket(ack, len(ack))
	if c.SndUna() != 2 {
		t.Fatalf("got sndUna %d after first ack, want 2", c.SndUna())
	}
	if c.SendBufferLen() != 0 {
		t.Fatalf("got send buffer len %d after first ack, want 0", c.SendBufferLen())
	}

	c.OnPacket(ack, len(ack)) // duplicate
	if c.SndUna() != 2 {
		t.Fatalf("got sndUna %d after duplicate ack, want unchanged 2", c.SndUna())
	}
	if c.SendBufferLen() != 0 {
		t.Fatalf("got send buffer len %d after duplicate ack, want 0", c.SendBufferLen())
	}
}

// S3 — out-of-order delivery.
func TestScenarioOutOfOrderDelivery(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{free: 1 << 20}
	dg := &fakeDatagram{}
	c := newTestConn(4, time.Second, src, sink, dg, time.Now())

	seg2 := wire.EncodeData(2, []byte("b"), wire.Checksum)
	c.OnPacket(seg2, len(seg2))
	if c.RcvNxt() != 1 {
		t.Fatalf("got rcvNxt %d after out-of-order segment, want unchanged 1", c.RcvNxt())
	}
	if len(dg.sent) != 1 {
		t.Fatalf("got %d acks sent, want 1", len(dg.sent))
	}
	if ackPkt, ok := wire.Decode(dg.sent[0], len(dg.sent[0]), wire.Checksum); !ok || ackPkt.Ackno != 1 {
		t.Fatalf("got ack %+v, want ackno=1", ackPkt)
	}

	seg1 := wire.EncodeData(1, []byte("a"), wire.Checksum)
	c.OnPacket(seg1, len(seg1))
	if c.RcvNxt() != 3 {
		t.Fatalf("got rcvNxt %d, want 3 after contiguous reassembly", c.RcvNxt())
	}
	if sink.written.String() != "ab" {
		t.Fatalf("got delivered %q, want %q", sink.written.String(), "ab")
	}
	last := dg.sent[len(dg.sent)-1]
	if ackPkt, ok := wire.Decode(last, len(last), wire.Checksum); !ok || ackPkt.Ackno != 3 {
		t.Fatalf("got final ack %+v, want ackno=3", ackPkt)
	}
}

// S4 — flow-controlled delivery.
func TestScenarioFlowControlledDelivery(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{free: 200}
	dg := &fakeDatagram{}
	c := newTestConn(1, time.Second, src, sink, dg, time.Now())

	payload := bytes.Repeat([]byte("x"), 500)
	seg := wire.EncodeData(1, payload, wire.Checksum)
	c.OnPacket(seg, len(seg))

	if sink.written.Len() != 200 {
		t.Fatalf("got %d bytes written, want 200", sink.written.Len())
	}
	if c.RecvBufferLen() != 1 {
		t.Fatalf("got recv buffer len %d, want 1 (entry retained)", c.RecvBufferLen())
	}
	if len(dg.sent) != 0 {
		t.Fatalf("got %d acks sent, want 0 during partial delivery", len(dg.sent))
	}

	sink.free = 500
	c.OnAppWritable()
	if sink.written.Len() != 500 {
		t.Fatalf("got %d bytes written total, want 500", sink.written.Len())
	}
	if c.RecvBufferLen() != 0 {
		t.Fatalf("got recv buffer len %d, want 0 after full delivery", c.RecvBufferLen())
	}
	if len(dg.sent) != 1 {
		t.Fatalf("got %d acks sent, want 1", len(dg.sent))
	}
	if ackPkt, ok := wire.Decode(dg.sent[0], len(dg.sent[0]), wire.Checksum); !ok || ackPkt.Ackno != 2 {
		t.Fatalf("got ack %+v, want ackno=2", ackPkt)
	}
}

// S5 — retransmission.
func TestScenarioRetransmission(t *testing.T) {
	src := &fakeSource{chunks: [][]byte{[]byte("x")}}
	sink := &fakeSink{free: 1 << 20}
	dg := &fakeDatagram{}
	t0 := time.Now()
	c := newTestConn(2, 100*time.Millisecond, src, sink, dg, t0)

	c.OnAppReadable()
	if len(dg.sent) != 1 {
		t.Fatalf("got %d packets sent, want 1", len(dg.sent))
	}
	first := dg.sent[0]

	c.OnTimerTick(t0.Add(150 * time.Millisecond))
	if len(dg.sent) != 2 {
		t.Fatalf("got %d packets sent after timer tick, want 2 (retransmit)", len(dg.sent))
	}
	if !bytes.Equal(dg.sent[1], first) {
		t.Fatalf("retransmitted bytes differ from the original transmission")
	}

	ack := wire.EncodeAck(2, wire.Checksum)
	c.OnPacket(ack, len(ack))
	if c.SendBufferLen() != 0 {
		t.Fatalf("got send buffer len %d, want 0 after ack", c.SendBufferLen())
	}
}

// S6 — graceful shutdown symmetry: two connections, wired through a
// synchronous FIFO of outbound datagrams (the event-loop driver this
// package expects, modeled directly rather than via the memconn
// package since this test only needs its own, single-threaded queue).
type queueDatagram struct {
	queue *[][]byte
}

func (q *queueDatagram) SendDatagram(b []byte) error {
	*q.queue = append(*q.queue, append([]byte(nil), b...))
	return nil
}

func TestScenarioGracefulShutdownSymmetry(t *testing.T) {
	var toB, toA [][]byte

	srcA := &fakeSource{eof: true}
	srcB := &fakeSource{eof: true}
	sinkA := &fakeSink{free: 1 << 20}
	sinkB := &fakeSink{free: 1 << 20}

	a := newTestConn(4, time.Second, srcA, sinkA, &queueDatagram{queue: &toB}, time.Now())
	b := newTestConn(4, time.Second, srcB, sinkB, &queueDatagram{queue: &toA}, time.Now())

	a.OnAppReadable()
	b.OnAppReadable()

	for i := 0; i < 10 && (len(toA) > 0 || len(toB) > 0); i++ {
		for len(toB) > 0 {
			p := toB[0]
			toB = toB[1:]
			b.OnPacket(p, len(p))
		}
		for len(toA) > 0 {
			p := toA[0]
			toA = toA[1:]
			a.OnPacket(p, len(p))
		}
	}

	if !a.TornDown() {
		t.Fatalf("connection A did not tear down")
	}
	if !b.TornDown() {
		t.Fatalf("connection B did not tear down")
	}
}
