package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/app"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/replay"
)

var replayShow bool

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml|dir>...",
	Short: "Run scripted scenarios against the engine",
	Long: `Replay runs the engine with scripted model and probe responses and checks
each scenario's expect block. A directory argument runs every *.yaml in it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, _, err := app.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		paths, err := scenarioPaths(args)
		if err != nil {
			return err
		}
		opts := engine.Options{
			Timeout:    cfg.OrchestrationTimeout.Std(),
			Thresholds: engine.Thresholds{Green: cfg.Thresholds.Green, Yellow: cfg.Thresholds.Yellow},
			Logger:     logger.Named("replay"),
		}
		failed, err := replayScenarios(cmd.Context(), cmd.OutOrStdout(), catalog, opts, paths)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenario(s) failed", failed, len(paths))
		}
		return nil
	},
}

// scenarioPaths expands directory arguments into their YAML files.
func scenarioPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.yaml"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %v", args)
	}
	return paths, nil
}

// replayScenarios runs each scenario and reports mismatches. Scenarios that
// fail to load count as failures.
func replayScenarios(ctx context.Context, w io.Writer, catalog *probe.Catalog, opts engine.Options, paths []string) (int, error) {
	failed := 0
	for _, path := range paths {
		s, err := replay.LoadScenario(path)
		if err != nil {
			fmt.Fprintf(w, "✗ %s\n  %v\n", path, err)
			failed++
			continue
		}
		name := s.Name
		if name == "" {
			name = filepath.Base(path)
		}

		ans, out := engine.RunScenario(ctx, s, catalog, opts)
		diffs := s.Expect.Check(out)
		if len(diffs) == 0 {
			fmt.Fprintf(w, "✓ %s (%d iteration(s), %d junior, %d senior)\n", name, out.Iterations, out.JuniorCalls, out.SeniorCalls)
		} else {
			failed++
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, d := range diffs {
				fmt.Fprintf(w, "  - %s\n", d)
			}
		}
		if replayShow && ans != nil {
			fmt.Fprintln(w, display.Answer(ans, display.Options{Citations: true}))
		}
	}
	return failed, nil
}

func init() {
	replayCmd.Flags().BoolVar(&replayShow, "show", false, "Print each rendered answer")
}
