package engine

import (
	"context"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/fastpath"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/replay"
)

// RunScenario answers a scenario's question with scripted model and probe
// responses and reports the outcome for checking against its expectations.
// The scenario's max_loops and fast_path override opts.
func RunScenario(ctx context.Context, s *replay.Scenario, catalog *probe.Catalog, opts Options) (*FinalAnswer, replay.Outcome) {
	client := replay.NewScriptedClient(s.Junior, s.Senior)
	exec := replay.NewScriptedExecutor(s.Probes)
	if s.MaxLoops > 0 {
		opts.MaxLoops = s.MaxLoops
	}
	if s.FastPath && opts.FastPath == nil {
		opts.FastPath = fastpath.DefaultMatcher()
	}

	ans, err := New(client, exec, catalog, opts).Process(ctx, s.Question)
	out := replay.Outcome{
		JuniorCalls: client.JuniorCalls(),
		SeniorCalls: client.SeniorCalls(),
		Err:         err,
	}
	if ans != nil {
		out.Refusal = ans.IsRefusal
		out.Confidence = string(ans.Confidence)
		out.Answer = ans.Answer
		out.Iterations = ans.LoopIterations
		out.Problems = ans.Problems
	}
	return ans, out
}
