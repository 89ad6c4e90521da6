// Package udp adapts a real net.PacketConn into the conn package's
// DatagramSink collaborator and a datagram-ready notification, so
// cmd/relserver and cmd/relclient can drive a Connection against actual UDP
// sockets. It follows the dispatch-loop-plus-external-dispatcher shape of
// yustack's link/tundev endpoint (a goroutine reads in a loop and hands
// each unit to a callback) narrowed from raw Ethernet frames down to this
// protocol's flat datagrams, with loop lifetime managed by a context
// instead of tundev's bare for-loop.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/Hubold17/reliable-project/wire"
)

// Endpoint binds a UDP socket and bridges it to one or more Connections.
// A fixed peer (set via Listen's raddr) makes Endpoint itself usable
// directly as a conn.DatagramSink for a single-peer caller like
// cmd/relclient; a multi-peer caller like cmd/relserver instead uses
// Dispatch's per-datagram remote address together with PeerSink to give
// each peer's Connection its own conn.DatagramSink.
type Endpoint struct {
	pc   net.PacketConn
	peer atomic.Value // net.Addr, set only when Listen was given a fixed raddr
}

// Listen opens a UDP socket bound to laddr. If raddr is non-empty, it is
// parsed and used as Endpoint's fixed peer address for SendDatagram;
// otherwise SendDatagram is unusable and callers are expected to address
// datagrams explicitly via SendTo/PeerSink, learning peers from Dispatch.
func Listen(laddr, raddr string) (*Endpoint, error) {
	pc, err := net.ListenPacket("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("adapter/udp: listen %s: %w", laddr, err)
	}

	e := &Endpoint{pc: pc}
	if raddr != "" {
		addr, err := net.ResolveUDPAddr("udp", raddr)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("adapter/udp: resolve peer %s: %w", raddr, err)
		}
		e.peer.Store((net.Addr)(addr))
	}
	return e, nil
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr { return e.pc.LocalAddr() }

// SendDatagram implements conn.DatagramSink against Endpoint's fixed peer
// (set via Listen's raddr). It is a no-op error (not a panic) if no fixed
// peer was configured — the packet is simply lost, which the
// retransmission timer will recover from once a peer is known.
func (e *Endpoint) SendDatagram(b []byte) error {
	peer, _ := e.peer.Load().(net.Addr)
	if peer == nil {
		return errors.New("adapter/udp: no fixed peer configured")
	}
	return e.SendTo(b, peer)
}

// SendTo writes b to the given remote address, for callers (like
// cmd/relserver) that address each datagram explicitly instead of relying
// on Endpoint's single fixed peer.
func (e *Endpoint) SendTo(b []byte, addr net.Addr) error {
	_, err := e.pc.WriteTo(b, addr)
	return err
}

// Close closes the underlying socket.
func (e *Endpoint) Close() error { return e.pc.Close() }

// Dispatch reads datagrams off the socket until ctx is cancelled or the
// socket is closed, handing each one, along with its sender address,
// to onPacket. A single-peer caller can ignore addr; a multi-peer caller
// uses it to route the datagram to the right per-peer Connection and to
// build a PeerSink for replies.
func (e *Endpoint) Dispatch(ctx context.Context, onPacket func(addr net.Addr, b []byte, n int)) error {
	buf := make([]byte, wire.MaxPacketSize)
	go func() {
		<-ctx.Done()
		e.pc.Close()
	}()

	for {
		n, addr, err := e.pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("adapter/udp: read: %w", err)
		}
		onPacket(addr, buf, n)
	}
}

// PeerSink implements conn.DatagramSink by addressing every datagram to one
// remote peer on a shared Endpoint, so a multi-peer server can give each
// registered Connection its own sink without opening a socket per peer.
type PeerSink struct {
	ep   *Endpoint
	addr net.Addr
}

// NewPeerSink returns a DatagramSink that sends through ep to addr.
func NewPeerSink(ep *Endpoint, addr net.Addr) *PeerSink {
	return &PeerSink{ep: ep, addr: addr}
}

// SendDatagram implements conn.DatagramSink.
func (p *PeerSink) SendDatagram(b []byte) error {
	return p.ep.SendTo(b, p.addr)
}
