package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/metrics"
	"github.com/clinicops/chartquery/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question workflow over HTTP",
	Long: `Serve exposes the record workflow on an HTTP endpoint. POST a question
to /api/ask and the response carries the terminal outcome, the narrative
or no-data message, and a request id for correlating log lines.

The server also exposes /healthz for liveness probes and /metrics for
Prometheus scrapes. It drains in-flight requests on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "",
		"listen address, for example :8080")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	metrics.RegisterWorkflowMetrics()

	repo, catalog, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	engine, err := newEngine(ctx, cfg, catalog, repo)
	if err != nil {
		return err
	}

	srv, err := server.New(&cfg.Server, engine, repo)
	if err != nil {
		return err
	}

	logging.Infof("listening on %s", cfg.Server.Addr)

	return srv.Run(ctx)
}
