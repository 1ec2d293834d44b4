package main

import (
	"context"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/chat"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// Traces are captured for every question so /debug and /trace can be
		// toggled mid-session.
		cfg.Debug.Enabled = true
		relay := &display.Relay{}
		a, err := newApp(relay)
		if err != nil {
			return err
		}
		defer a.Close()

		ask := chat.AskFunc(a.Engine.Process)
		if isatty.IsTerminal(os.Stderr.Fd()) {
			// readline owns stdin; the spinner only draws.
			ask = func(ctx context.Context, q string) (*engine.FinalAnswer, error) {
				return display.RunProgress(ctx, relay, a.Engine.MaxLoops(), func(ctx context.Context) (*engine.FinalAnswer, error) {
					return a.Engine.Process(ctx, q)
				}, tea.WithInput(nil), tea.WithOutput(os.Stderr))
			}
		}

		s := chat.New(ask, a.Catalog, display.Options{Markdown: true, Citations: true})
		s.SetOutput(cmd.OutOrStdout())
		return s.Run(ctx)
	},
}
