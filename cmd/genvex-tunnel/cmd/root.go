package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var metricsAddr string

var rootCmd = &cobra.Command{
	Use:   "genvex-tunnel",
	Short: "Discover and poll Genvex Optima ventilation controllers over the legacy tunnel protocol",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9100); disabled when empty")
	rootCmd.AddCommand(discoverCmd, pollCmd, setValueCmd)
}

// maybeServeMetrics starts a background Prometheus exporter when
// --metrics-addr is set. Errors are logged, not fatal: metrics are ambient
// observability, not load-bearing for the poll loop.
func maybeServeMetrics() {
	if metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			fmt.Fprintln(os.Stderr, "genvex-tunnel: metrics server:", err)
		}
	}()
}
