// Command relclient pipes stdin to a peer over this package's reliable
// transport, and writes the peer's bytes to stdout, wired against a real
// UDP socket and the process's own stdin/stdout.
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
	"github.com/Hubold17/reliable-project/adapter/stdio"
	"github.com/Hubold17/reliable-project/config"
	"github.com/Hubold17/reliable-project/conn"
	"github.com/Hubold17/reliable-project/registry"
	"github.com/Hubold17/reliable-project/waiter"
	"github.com/Hubold17/reliable-project/wire"
)

func main() {
	configPath := flag.String("config", "relclient.yml", "path to the YAML config file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("relclient: %v", err)
	}
	if cfg.Peer == "" {
		log.Fatalf("relclient: config %s must set peer", *configPath)
	}

	ep, err := adapterudp.Listen(cfg.Listen, cfg.Peer)
	if err != nil {
		log.Fatalf("relclient: %v", err)
	}
	defer ep.Close()

	reg := registry.New()
	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr, reg)
	}

	var appWQ waiter.Queue
	source := stdio.NewSource(os.Stdin, &appWQ)
	sink := stdio.NewSink(os.Stdout)

	c := conn.New(conn.Collaborators{
		Datagram:   ep,
		Source:     source,
		Sink:       sink,
		Checksum:   wire.Checksum,
		Now:        time.Now,
		WindowSize: cfg.WindowSize,
		Timeout:    cfg.Timeout(),
	})
	id := reg.Add(c, cfg.Peer)
	log.Infof("relclient: connection %s dialing %s via %s", id, cfg.Peer, cfg.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	datagramCh := make(chan []byte, 64)
	go func() {
		if err := ep.Dispatch(ctx, func(addr net.Addr, b []byte, n int) {
			cp := append([]byte(nil), b[:n]...)
			select {
			case datagramCh <- cp:
			default:
				log.Warn("relclient: datagram dropped, event loop backed up")
			}
		}); err != nil {
			log.Warnf("relclient: dispatch loop ended: %v", err)
		}
	}()

	appReadableEntry, appReadableCh := waiter.NewChannelEntry(nil)
	appWQ.EventRegister(&appReadableEntry, waiter.EventAppReadable)
	defer appWQ.EventUnregister(&appReadableEntry)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	c.OnAppReadable()

	for !c.TornDown() {
		select {
		case b := <-datagramCh:
			c.OnPacket(b, len(b))
		case <-appReadableCh:
			c.OnAppReadable()
		case now := <-ticker.C:
			reg.Tick(now)
		case <-sigCh:
			log.Info("relclient: interrupted, shutting down")
			return
		}
	}
	if err := reg.RemoveIfTornDown(id); err != nil {
		log.Warnf("relclient: %v", err)
	}
	log.Infof("relclient: connection %s torn down cleanly", id)
}

func serveMetrics(log *logrus.Logger, addr string, reg *registry.Registry) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	log.Infof("relclient: serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warnf("relclient: metrics server stopped: %v", err)
	}
}
