package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"xcs/pkg/xcs"
)

type globalFlags struct {
	logLevel    string
	logFormat   string
	metricsAddr string
	runsDir     string
	store       string
	dbPath      string
}

type cli struct {
	flags   globalFlags
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	metrics *http.Server
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "xcsctl",
		Short:         "Train and inspect XCS learning classifier systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.teardown(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&c.flags.logFormat, "log-format", "auto", "log format: auto|text|json")
	pf.StringVar(&c.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	pf.StringVar(&c.flags.runsDir, "runs-dir", "runs", "directory holding run artifacts")
	pf.StringVar(&c.flags.store, "store", "memory", "store backend: memory|sqlite")
	pf.StringVar(&c.flags.dbPath, "db-path", "xcs.db", "sqlite database path")

	root.AddCommand(
		c.newRunCmd(),
		c.newGenerateCmd(),
		c.newPopulationCmd(),
		c.newTrackCmd(),
		c.newRunsCmd(),
		c.newExportCmd(),
	)
	return root
}

func (c *cli) setup(_ context.Context) error {
	logger, err := newLogger(c.stderr, c.flags.logLevel, c.flags.logFormat)
	if err != nil {
		return err
	}
	c.logger = logger
	slog.SetDefault(logger)

	if c.flags.metricsAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", c.flags.metricsAddr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	c.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := c.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (c *cli) teardown(ctx context.Context) error {
	if c.metrics == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return c.metrics.Shutdown(shutdownCtx)
}

func (c *cli) client() (*xcs.Client, error) {
	return c.clientWithStore(c.flags.store, c.flags.dbPath)
}

func (c *cli) clientWithStore(kind, dbPath string) (*xcs.Client, error) {
	return xcs.New(xcs.Options{
		StoreKind: kind,
		DBPath:    dbPath,
		RunsDir:   c.flags.runsDir,
		Logger:    c.logger,
	})
}
