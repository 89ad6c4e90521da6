// Package stdio adapts the process's standard input and output into the
// conn package's AppSource and AppSink collaborators, so a relay binary can
// use its own stdin/stdout as the thing being transported. Readability is
// pushed onto a waiter.Queue-backed channel by
// a background reader goroutine, following the same
// blocking-io-in-a-goroutine-notifies-a-channel shape yustack's
// link/tundev dispatch loop uses for a blocking file descriptor.
package stdio

import (
	"io"
	"sync"

	"github.com/Hubold17/reliable-project/waiter"
)

// chunkSize bounds each read off the source, matching the largest payload
// a single data packet may carry.
const chunkSize = 500

// Source reads from an io.Reader (ordinarily os.Stdin) on a background
// goroutine and exposes it as a conn.AppSource, notifying q on
// waiter.EventAppReadable whenever a chunk becomes available or EOF is
// reached.
type Source struct {
	q *waiter.Queue

	mu     sync.Mutex
	chunks [][]byte
	eof    bool
}

// NewSource starts reading r in the background and returns a Source that
// will notify q whenever new bytes (or EOF) are observed.
func NewSource(r io.Reader, q *waiter.Queue) *Source {
	s := &Source{q: q}
	go s.readLoop(r)
	return s
}

func (s *Source) readLoop(r io.Reader) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.mu.Lock()
			s.chunks = append(s.chunks, chunk)
			s.mu.Unlock()
			s.q.Notify(waiter.EventAppReadable)
		}
		if err != nil {
			s.mu.Lock()
			s.eof = true
			s.mu.Unlock()
			s.q.Notify(waiter.EventAppReadable)
			return
		}
	}
}

// ReadFromApp implements conn.AppSource.
func (s *Source) ReadFromApp(buf []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		return 0, s.eof
	}
	n := copy(buf, s.chunks[0])
	if n == len(s.chunks[0]) {
		s.chunks = s.chunks[1:]
	} else {
		s.chunks[0] = s.chunks[0][n:]
	}
	return n, false
}

// Sink writes inbound, in-order bytes straight through to an io.Writer
// (ordinarily os.Stdout). FreeSpace reports an effectively unbounded
// capacity since a process's stdout has no backpressure signal this
// protocol's flow control can observe.
type Sink struct {
	w           io.Writer
	bufferedCap int
	mu          sync.Mutex
}

// NewSink wraps w as a conn.AppSink with effectively unbounded free space.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w, bufferedCap: 1 << 30}
}

// NewSinkWithCapacity wraps w as a conn.AppSink whose FreeSpace is capped at
// cap, for tests that want to exercise this protocol's flow control against
// a bounded downstream consumer.
func NewSinkWithCapacity(w io.Writer, cap int) *Sink {
	return &Sink{w: w, bufferedCap: cap}
}

// FreeSpace implements conn.AppSink.
func (s *Sink) FreeSpace() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferedCap
}

// WriteToApp implements conn.AppSink. A write error to stdout is not
// recoverable by this protocol (there's no flow-control signal to retry
// against), so WriteToApp just attempts the write and discards any error,
// the same way the teacher's best-effort WritePacket does for a down link;
// the caller has no way to observe a failed write.
func (s *Sink) WriteToApp(b []byte) {
	s.w.Write(b)
}
