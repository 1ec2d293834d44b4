package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
)

var (
	askJSON      bool
	askDebug     bool
	askNoSpinner bool
	askMarkdown  bool
	askWidth     int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if askDebug {
		cfg.Debug.Enabled = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	relay := &display.Relay{}
	a, err := newApp(relay)
	if err != nil {
		return err
	}
	defer a.Close()

	var ans *engine.FinalAnswer
	if askNoSpinner || askJSON || !isatty.IsTerminal(os.Stderr.Fd()) {
		ans, err = a.Engine.Process(ctx, question)
	} else {
		ans, err = display.RunProgress(ctx, relay, a.Engine.MaxLoops(), func(ctx context.Context) (*engine.FinalAnswer, error) {
			return a.Engine.Process(ctx, question)
		}, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	}
	if err != nil {
		return err
	}
	return printAnswer(cmd.OutOrStdout(), ans)
}

func printAnswer(w io.Writer, ans *engine.FinalAnswer) error {
	if askJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	_, err := fmt.Fprintln(w, display.Answer(ans, display.Options{
		Width:     askWidth,
		Markdown:  askMarkdown,
		Citations: true,
		Debug:     askDebug,
	}))
	return err
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full answer as JSON")
	askCmd.Flags().BoolVar(&askDebug, "debug", false, "Capture and print the per-iteration model exchange")
	askCmd.Flags().BoolVar(&askNoSpinner, "no-spinner", false, "Do not show progress while answering")
	askCmd.Flags().BoolVar(&askMarkdown, "markdown", true, "Render the answer as markdown")
	askCmd.Flags().IntVar(&askWidth, "width", 0, "Wrap width (default 80)")
}
