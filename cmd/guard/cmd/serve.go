package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/fencio-dev/guard-sub000/internal/adapter/inbound/http"
	"github.com/fencio-dev/guard-sub000/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP decision surface",
	Long: `Start the guard HTTP server exposing the enforcement operations:

  POST   /v1/enforce  evaluate one intent
  POST   /v1/rules    install a batch of rules
  DELETE /v1/rules    remove every rule for a (tenant, agent) pair
  GET    /v1/stats    rule store statistics
  GET    /healthz     liveness probe
  GET    /metrics     Prometheus metrics

Examples:
  # Serve with config file settings
  guard serve

  # Serve with a specific config file
  guard --config /path/to/guard.yaml serve`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, stdout traces)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	server := httpadapter.NewServer(a.enforce, a.install, a.logger,
		httpadapter.WithAddr(cfg.Server.HTTPAddr),
		httpadapter.WithVersion(Version),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
