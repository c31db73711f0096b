// Package discovery implements the legacy UDP broadcast/unicast discovery
// exchange (spec §4.2): send a discovery request up to Options.Retries
// times and collect DiscoveryReply packets until Options.Timeout elapses.
// Each Broadcast or Unicast call opens its own socket, scoped to that one
// discovery operation (mirrors shelly-go's CoIoTDiscoverer.Discover).
package discovery

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genvex/tunnel/clog"
	"github.com/genvex/tunnel/tunnel"
)

var log = clog.NewLogger("discovery")

// SetDebug toggles verbose discovery logging.
func SetDebug(v bool) { log.LogMode(v) }

// ErrDiscoveryTimeout is returned by Unicast when no matching reply arrives
// within Options.Timeout.
var ErrDiscoveryTimeout = errors.New("discovery: timed out waiting for a reply")

type hit struct {
	reply tunnel.DiscoveryReply
	addr  *net.UDPAddr
}

// Broadcast sends a discovery request to the local broadcast address and
// collects replies until opts.Timeout elapses. A device that replies more
// than once is reported once, at its last-seen address.
func Broadcast(ctx context.Context, opts Options) ([]Device, error) {
	if err := opts.Valid(); err != nil {
		return nil, err
	}
	conn, err := listenBroadcast()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: int(tunnel.DefaultPort)}
	return collect(ctx, conn, dst, opts)
}

// Unicast sends a discovery request directly to addr and returns the first
// matching reply, or ErrDiscoveryTimeout if none arrives within
// opts.Timeout.
func Unicast(ctx context.Context, addr tunnel.DeviceAddr, opts Options) (*Device, error) {
	if err := opts.Valid(); err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	devices, err := collect(ctx, conn, addr.UDPAddr(), opts)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if opts.DeviceID == Wildcard || devices[i].DeviceID == opts.DeviceID {
			return &devices[i], nil
		}
	}
	return nil, ErrDiscoveryTimeout
}

func listenBroadcast() (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		conn.Close()
		return nil, err
	}
	if sockErr != nil {
		conn.Close()
		return nil, sockErr
	}
	return conn, nil
}

// collect drives the send/receive loop: a sender goroutine sends the
// discovery request up to opts.Retries times, spaced by opts.RetryInterval,
// while a reader goroutine demuxes incoming replies onto hits. Both are
// coordinated with errgroup; an immediate read deadline on teardown unblocks
// the reader's blocking ReadFromUDP call.
func collect(ctx context.Context, conn *net.UDPConn, dst *net.UDPAddr, opts Options) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// opID has no role on the wire; it ties the send/receive logs of one
	// broadcast fan-out together in a host application's log aggregator.
	opID := uuid.New()
	log.Debug("starting discovery operation", "op", opID, "dst", dst, "deviceId", opts.DeviceID)

	hits := make(chan hit, 32)
	req := tunnel.BuildDiscoveryPacket(opts.DeviceID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sendRequests(gctx, conn, dst, req, opts)
	})
	g.Go(func() error {
		readReplies(conn, hits)
		return nil
	})

	found := make(map[string]Device)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case h := <-hits:
			if opts.DeviceID != Wildcard && h.reply.DeviceID != opts.DeviceID {
				continue
			}
			found[h.reply.DeviceID] = Device{
				DeviceID: h.reply.DeviceID,
				Addr: tunnel.DeviceAddr{
					IP:       h.addr.IP,
					Port:     uint16(h.addr.Port),
					DeviceID: h.reply.DeviceID,
				},
			}
		}
	}

	// Unblock readReplies' pending ReadFromUDP with an expired read deadline
	// (its timeout error ends the reader) and let the sender goroutine
	// observe ctx.Done(); any error from either goroutine is ignored.
	conn.SetReadDeadline(time.Now())
	_ = g.Wait()

	devices := make([]Device, 0, len(found))
	for _, d := range found {
		devices = append(devices, d)
	}
	return devices, nil
}

func sendRequests(ctx context.Context, conn *net.UDPConn, dst *net.UDPAddr, req []byte, opts Options) error {
	if _, err := conn.WriteToUDP(req, dst); err != nil {
		return err
	}
	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()
	sent := 1
	for sent < opts.Retries {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := conn.WriteToUDP(req, dst); err != nil {
				return err
			}
			sent++
		}
	}
	<-ctx.Done()
	return nil
}

func readReplies(conn *net.UDPConn, hits chan<- hit) {
	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		reply, err := tunnel.ParseDiscoveryReply(buf[:n])
		if err != nil {
			log.Debug("dropping malformed discovery reply", "addr", addr, "err", err)
			continue
		}
		select {
		case hits <- hit{reply: reply, addr: addr}:
		default:
		}
	}
}
