// Package main provides anna-mcp, an MCP stdio server exposing the answer
// engine to AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/app"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/config"
	amcp "github.com/jjgarcianorway/anna-assistant-sub000/pkg/mcp"
)

var version = "dev"

var (
	cfgPath string
	logPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "anna-mcp",
	Short:         "Serve the Anna answer engine as MCP tools over stdio",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs go to a file or nowhere.
		logger := zap.NewNop()
		if logPath != "" {
			zc := zap.NewProductionConfig()
			zc.OutputPaths = []string{logPath}
			l, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			defer logger.Sync()
		}

		cfg, err := config.LoadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("config %s: %w", cfgPath, err)
		}
		a, err := app.New(cfg, app.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer a.Close()

		s := amcp.NewServer(version, &amcp.Handlers{Engine: a.Engine, Catalog: a.Catalog})
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "/etc/anna/config.yaml", "Path to the configuration file")
	rootCmd.Flags().StringVar(&logPath, "log-file", "", "Write JSON logs to this file")
	rootCmd.Version = version
}
