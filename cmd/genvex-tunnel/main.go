// Command genvex-tunnel is a small CLI over the tunnel/session/polling
// packages: discover devices on the LAN, poll one continuously, or issue a
// single setpoint write.
package main

import (
	"fmt"
	"os"

	"github.com/genvex/tunnel/cmd/genvex-tunnel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "genvex-tunnel:", err)
		os.Exit(1)
	}
}
