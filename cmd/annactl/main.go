// Package main provides annactl, the Anna command-line client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/app"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/config"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfgPath string
	verbose bool

	logger *zap.Logger
	cfg    config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "annactl",
	Short:         "Ask Anna about this system",
	Long:          "annactl answers questions about the local machine from read-only probes, drafted by one model and audited by another.",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = app.NewLogger(verbose)
		if err != nil {
			return err
		}
		cfg, err = config.LoadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("config %s: %w", cfgPath, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newApp builds the engine from the loaded configuration.
func newApp(obs engine.Observer) (*app.App, error) {
	return app.New(cfg, app.Options{Logger: logger, Observer: obs})
}

func defaultConfigPath() string {
	if p := os.Getenv("ANNA_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "anna.yaml"
	}
	return dir + "/anna/config.yaml"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "annactl %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(probesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(versionCmd)
}
