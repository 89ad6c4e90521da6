// Command relserver binds a UDP socket and, for every distinct peer address
// it hears from, creates a connection over this package's reliable
// transport and echoes that connection's delivered byte stream straight
// back out to the same peer.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	adapterudp "github.com/Hubold17/reliable-project/adapter/udp"
	"github.com/Hubold17/reliable-project/adapter/echo"
	"github.com/Hubold17/reliable-project/config"
	"github.com/Hubold17/reliable-project/conn"
	"github.com/Hubold17/reliable-project/registry"
	"github.com/Hubold17/reliable-project/wire"
)

// peerState is one peer's connection plus the echo pipe driving it.
type peerState struct {
	id   string
	c    *conn.Connection
	pipe *echo.Pipe
}

func newPeer(ep *adapterudp.Endpoint, addr net.Addr, reg *registry.Registry, cfg config.Config) *peerState {
	pipe := echo.NewPipe()
	c := conn.New(conn.Collaborators{
		Datagram:   adapterudp.NewPeerSink(ep, addr),
		Source:     pipe,
		Sink:       pipe,
		Checksum:   wire.Checksum,
		Now:        time.Now,
		WindowSize: cfg.WindowSize,
		Timeout:    cfg.Timeout(),
	})
	pipe.Bind(c)
	id := reg.Add(c, addr.String())
	return &peerState{id: id, c: c, pipe: pipe}
}

func main() {
	configPath := flag.String("config", "relserver.yml", "path to the YAML config file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("relserver: %v", err)
	}

	ep, err := adapterudp.Listen(cfg.Listen, "")
	if err != nil {
		log.Fatalf("relserver: %v", err)
	}
	defer ep.Close()

	reg := registry.New()
	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr, reg)
	}

	log.Infof("relserver: listening on %s", cfg.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	type datagram struct {
		addr net.Addr
		b    []byte
	}
	datagramCh := make(chan datagram, 64)
	go func() {
		if err := ep.Dispatch(ctx, func(addr net.Addr, b []byte, n int) {
			cp := append([]byte(nil), b[:n]...)
			select {
			case datagramCh <- datagram{addr, cp}:
			default:
				log.Warn("relserver: datagram dropped, event loop backed up")
			}
		}); err != nil {
			log.Warnf("relserver: dispatch loop ended: %v", err)
		}
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	peers := make(map[string]*peerState)

	reap := func(key string, ps *peerState) {
		if err := reg.RemoveIfTornDown(ps.id); err != nil {
			log.Warnf("relserver: %v", err)
			return
		}
		delete(peers, key)
		log.Infof("relserver: connection %s (%s) torn down cleanly", ps.id, key)
	}

	for {
		select {
		case d := <-datagramCh:
			key := d.addr.String()
			ps, ok := peers[key]
			if !ok {
				ps = newPeer(ep, d.addr, reg, cfg)
				peers[key] = ps
				log.Infof("relserver: connection %s accepted from %s", ps.id, key)
			}
			ps.c.OnPacket(d.b, len(d.b))
			ps.c.OnAppReadable()
			if ps.c.TornDown() {
				reap(key, ps)
			}
		case now := <-ticker.C:
			reg.Tick(now)
			for key, ps := range peers {
				if ps.c.TornDown() {
					reap(key, ps)
				}
			}
		case <-sigCh:
			log.Info("relserver: interrupted, shutting down")
			return
		}
	}
}

func serveMetrics(log *logrus.Logger, addr string, reg *registry.Registry) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	log.Infof("relserver: serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warnf("relserver: metrics server stopped: %v", err)
	}
}
