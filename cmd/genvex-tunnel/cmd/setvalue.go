package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/genvex/tunnel/polling"
	"github.com/genvex/tunnel/session"
	"github.com/genvex/tunnel/tunnel"
)

var (
	setValueIP      string
	setValueEmail   string
	setValueCatalog string
	setValueName    string
	setValueValue   float64
)

var setValueCmd = &cobra.Command{
	Use:   "set-value",
	Short: "Connect to a device and write one setpoint",
	RunE:  runSetValue,
}

func init() {
	setValueCmd.Flags().StringVar(&setValueIP, "ip", "", "device IPv4 address (required)")
	setValueCmd.Flags().StringVar(&setValueEmail, "email", "", "account email embedded in the connect handshake (required)")
	setValueCmd.Flags().StringVar(&setValueCatalog, "catalog", "270", "controller family: 270 or 251")
	setValueCmd.Flags().StringVar(&setValueName, "name", "", "setpoint name, e.g. FAN_SPEED or TEMP_SETPOINT (required)")
	setValueCmd.Flags().Float64Var(&setValueValue, "value", 0, "display value to write")
	_ = setValueCmd.MarkFlagRequired("ip")
	_ = setValueCmd.MarkFlagRequired("email")
	_ = setValueCmd.MarkFlagRequired("name")
}

func runSetValue(c *cobra.Command, args []string) error {
	model, err := catalogByName(setValueCatalog)
	if err != nil {
		return err
	}
	ip := net.ParseIP(setValueIP)
	if ip == nil {
		return fmt.Errorf("invalid --ip %q", setValueIP)
	}

	ctx := c.Context()
	sess, err := session.Connect(ctx, session.DefaultConfig(), tunnel.DeviceAddr{IP: ip}, setValueEmail)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine := polling.New(sess, model, polling.DefaultConfig())
	if err := engine.Connect(ctx); err != nil {
		return err
	}
	defer engine.Disconnect()

	if err := engine.SetValue(ctx, setValueName, setValueValue); err != nil {
		return err
	}
	fmt.Printf("%s = %g\n", setValueName, setValueValue)
	return nil
}
