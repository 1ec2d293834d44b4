// Package main provides annad, the Anna HTTP daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/app"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/config"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/server"
)

var version = "dev"

var (
	cfgPath    string
	addr       string
	verbose    bool
	traceSpans bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "annad",
	Short:        "Serve the Anna answer engine over HTTP",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func run(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if traceSpans {
		shutdown, err := setupTracing(os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	a, err := app.New(cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("annad starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.Int("probes", a.Catalog.Len()),
		zap.String("junior_model", cfg.LLM.JuniorModel),
		zap.String("senior_model", cfg.LLM.SeniorModel),
	)
	srv := server.New(a.Engine, a.Catalog, logger.Named("http"))
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "/etc/anna/config.yaml", "Path to the configuration file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&traceSpans, "trace-spans", false, "Export OpenTelemetry spans to stderr")
	rootCmd.Version = version
}
