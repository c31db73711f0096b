package cmd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/genvex/tunnel/discovery"
	"github.com/genvex/tunnel/tunnel"
)

var (
	discoverDeviceID string
	discoverIP       string
	discoverTimeout  time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover devices by LAN broadcast, or probe one by IP",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverDeviceID, "device-id", discovery.Wildcard, "device id to filter for, or \"*\" for every device")
	discoverCmd.Flags().StringVar(&discoverIP, "ip", "", "probe this address directly instead of broadcasting")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 5*time.Second, "how long to wait for replies")
}

func runDiscover(c *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(c.Context(), discoverTimeout+time.Second)
	defer cancel()

	opts := discovery.Options{DeviceID: discoverDeviceID, Timeout: discoverTimeout}

	if discoverIP != "" {
		ip := net.ParseIP(discoverIP)
		if ip == nil {
			return fmt.Errorf("invalid --ip %q", discoverIP)
		}
		dev, err := discovery.Unicast(ctx, tunnel.DeviceAddr{IP: ip, DeviceID: discoverDeviceID}, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", dev.DeviceID, dev.Addr.IP)
		return nil
	}

	devices, err := discovery.Broadcast(ctx, opts)
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.DeviceID, d.Addr.IP)
	}
	return nil
}
