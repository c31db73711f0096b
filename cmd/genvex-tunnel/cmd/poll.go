package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/genvex/tunnel/polling"
	"github.com/genvex/tunnel/register"
	"github.com/genvex/tunnel/session"
	"github.com/genvex/tunnel/tunnel"
)

var (
	pollIP      string
	pollEmail   string
	pollCatalog string
	pollPort    uint16
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Connect to a device and poll its registers continuously",
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().StringVar(&pollIP, "ip", "", "device IPv4 address (required)")
	pollCmd.Flags().StringVar(&pollEmail, "email", "", "account email embedded in the connect handshake (required)")
	pollCmd.Flags().StringVar(&pollCatalog, "catalog", "270", "controller family: 270 or 251")
	pollCmd.Flags().Uint16Var(&pollPort, "port", tunnel.DefaultPort, "device UDP port")
	_ = pollCmd.MarkFlagRequired("ip")
	_ = pollCmd.MarkFlagRequired("email")
}

func catalogByName(name string) (register.Model, error) {
	switch name {
	case "270":
		return register.NewOptima270(), nil
	case "251":
		return register.NewOptima251(), nil
	default:
		return nil, fmt.Errorf("unknown --catalog %q (want 270 or 251)", name)
	}
}

// runPoll connects, polls until the underlying session disconnects, then
// reconnects with an exponential backoff capped at the engine's configured
// ReconnectBackoffMax -- reconnection is a higher-layer concern the engine
// itself does not own (spec §7).
func runPoll(c *cobra.Command, args []string) error {
	maybeServeMetrics()

	model, err := catalogByName(pollCatalog)
	if err != nil {
		return err
	}
	ip := net.ParseIP(pollIP)
	if ip == nil {
		return fmt.Errorf("invalid --ip %q", pollIP)
	}
	addr := tunnel.DeviceAddr{IP: ip, Port: pollPort}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
	defer stop()

	cfg := polling.DefaultConfig()
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever; only ctx cancellation stops us
	bo.MaxInterval = cfg.ReconnectBackoffMax

	for ctx.Err() == nil {
		if err := pollOnceUntilDisconnected(ctx, addr, model, cfg); err != nil {
			fmt.Fprintln(os.Stderr, "genvex-tunnel: poll session ended:", err)
		}
		if ctx.Err() != nil {
			break
		}
		wait := bo.NextBackOff()
		fmt.Fprintf(os.Stderr, "genvex-tunnel: reconnecting in %s\n", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}
	return nil
}

func pollOnceUntilDisconnected(ctx context.Context, addr tunnel.DeviceAddr, model register.Model, cfg polling.Config) error {
	sess, err := session.Connect(ctx, session.DefaultConfig(), addr, pollEmail)
	if err != nil {
		return err
	}

	engine := polling.New(sess, model, cfg)
	if err := engine.Connect(ctx); err != nil {
		sess.Close()
		return err
	}

	for {
		select {
		case ev, ok := <-engine.Events():
			if !ok {
				return nil
			}
			logPollEvent(ev)
			if ev.Kind == polling.EventDisconnected {
				return ev.Err
			}
		case <-ctx.Done():
			engine.Disconnect()
			return ctx.Err()
		}
	}
}

func logPollEvent(ev polling.Event) {
	switch ev.Kind {
	case polling.EventConnected:
		fmt.Println("connected")
	case polling.EventDisconnected:
		fmt.Println("disconnected:", ev.Err)
	case polling.EventModel:
		fmt.Printf("model: device=%d/%d slave=%d/%d\n", ev.Model.DeviceNumber, ev.Model.DeviceModel, ev.Model.SlaveDeviceNumber, ev.Model.SlaveDeviceModel)
	case polling.EventData:
		fmt.Printf("%s = %g %s (%s)\n", ev.Name, ev.Value, ev.Unit, ev.Capability)
	case polling.EventPolled:
		// quiet by default; one poll cycle completed cleanly
	case polling.EventError:
		fmt.Println("error:", ev.Err)
	}
}
