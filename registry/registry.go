// Package registry tracks the set of live connections a process is driving,
// exposes them to Prometheus as a Collector, and drives their
// retransmission timers. It plays the role yustack's stack package plays
// for a transport_demuxer — a lookup table from connection identity to
// endpoint — generalized from a protocol multiplexer keyed by port pairs to
// a flat table keyed by an opaque connection ID, and enriched with the
// metrics-collector shape from sockstats's pkg/exporter/exporter.go.
package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/Hubold17/reliable-project/conn"
	"github.com/Hubold17/reliable-project/tmutex"
)

// entry pairs a connection with the label values describing it for metrics.
type entry struct {
	conn  *conn.Connection
	peer  string
	label string
}

// Registry is a thread-safe table of live connections. Collect runs on the
// Prometheus HTTP handler's goroutine while the event loop goroutine
// concurrently mutates connections via Tick and OnPacket dispatch, so
// access to the table itself is guarded by tmutex.Mutex rather than a plain
// sync.Mutex — the same primitive yustack uses to protect its endpoint
// tables from that identical client-goroutine-vs-protocol-goroutine race.
type Registry struct {
	mu   tmutex.Mutex
	byID map[string]*entry

	torndownTotal prometheus.Counter

	sndUnaDesc    *prometheus.Desc
	sndNxtDesc    *prometheus.Desc
	rcvNxtDesc    *prometheus.Desc
	sendBufDesc   *prometheus.Desc
	recvBufDesc   *prometheus.Desc
}

// New returns an empty, ready-to-use Registry.
func New() *Registry {
	r := &Registry{
		byID: make(map[string]*entry),
		torndownTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reliable",
			Name:      "connections_torndown_total",
			Help:      "Number of connections that have completed graceful teardown.",
		}),
		sndUnaDesc: prometheus.NewDesc("reliable_snd_una", "Oldest unacknowledged send sequence number.", []string{"id", "peer"}, nil),
		sndNxtDesc: prometheus.NewDesc("reliable_snd_nxt", "Next send sequence number to assign.", []string{"id", "peer"}, nil),
		rcvNxtDesc: prometheus.NewDesc("reliable_rcv_nxt", "Next sequence number expected from the peer.", []string{"id", "peer"}, nil),
		sendBufDesc: prometheus.NewDesc("reliable_send_buffer_entries", "Entries awaiting acknowledgement.", []string{"id", "peer"}, nil),
		recvBufDesc: prometheus.NewDesc("reliable_recv_buffer_entries", "Entries awaiting in-order delivery.", []string{"id", "peer"}, nil),
	}
	r.mu.Init()
	return r
}

// Add registers c under a freshly minted connection ID and returns it, so
// callers can correlate log lines and metrics with a specific connection.
func (r *Registry) Add(c *conn.Connection, peer string) string {
	id := xid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = &entry{conn: c, peer: peer, label: id}
	return id
}

// RemoveIfTornDown drops the connection with the given ID from the
// registry and counts it toward the teardown total, but only if the
// connection has actually completed its four-condition teardown;
// otherwise it leaves the table untouched and returns conn.ErrNotTornDown,
// since removing a still-live connection would silently stop its
// retransmission timer from ever firing again.
func (r *Registry) RemoveIfTornDown(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return nil
	}
	if !e.conn.TornDown() {
		return conn.ErrNotTornDown
	}
	delete(r.byID, id)
	r.torndownTotal.Inc()
	return nil
}

// Tick drives the retransmission timer (spec §4.8) across every registered
// connection and reaps any that have since torn down, so a caller only has
// to invoke Tick on a periodic ticker to keep both jobs going.
func (r *Registry) Tick(now time.Time) {
	r.mu.Lock()
	reap := make([]string, 0)
	for id, e := range r.byID {
		e.conn.OnTimerTick(now)
		if e.conn.TornDown() {
			reap = append(reap, id)
		}
	}
	for _, id := range reap {
		delete(r.byID, id)
	}
	r.mu.Unlock()

	for range reap {
		r.torndownTotal.Inc()
	}
}

// Len reports the number of currently registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.sndUnaDesc
	ch <- r.sndNxtDesc
	ch <- r.rcvNxtDesc
	ch <- r.sendBufDesc
	ch <- r.recvBufDesc
	r.torndownTotal.Describe(ch)
}

// Collect implements prometheus.Collector. It runs on whatever goroutine is
// serving /metrics, concurrently with the goroutine driving the event loop,
// which is exactly why the table lookup below is tmutex-guarded.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.mu.Lock()
	snapshot := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		snapshot = append(snapshot, e)
	}
	r.mu.Unlock()

	for _, e := range snapshot {
		labels := []string{e.label, e.peer}
		ch <- prometheus.MustNewConstMetric(r.sndUnaDesc, prometheus.GaugeValue, float64(e.conn.SndUna()), labels...)
		ch <- prometheus.MustNewConstMetric(r.sndNxtDesc, prometheus.GaugeValue, float64(e.conn.SndNxt()), labels...)
		ch <- prometheus.MustNewConstMetric(r.rcvNxtDesc, prometheus.GaugeValue, float64(e.conn.RcvNxt()), labels...)
		ch <- prometheus.MustNewConstMetric(r.sendBufDesc, prometheus.GaugeValue, float64(e.conn.SendBufferLen()), labels...)
		ch <- prometheus.MustNewConstMetric(r.recvBufDesc, prometheus.GaugeValue, float64(e.conn.RecvBufferLen()), labels...)
	}
	r.torndownTotal.Collect(ch)
}

var _ prometheus.Collector = (*Registry)(nil)
