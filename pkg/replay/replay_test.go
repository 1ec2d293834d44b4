package replay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

const scenarioYAML = `
name: cores
question: how many cores do I have?
max_loops: 2
junior:
  - raw: '{"intent":"cpu","probe_requests":["cpu.info"]}'
  - raw: '{"draft_answer":"You have 8 cores.","scores":{"overall":0.8}}'
senior:
  - raw: '{"verdict":"approve","scores":{"evidence":0.95,"reasoning":0.95,"coverage":0.95,"overall":0.95}}'
probes:
  cpu.info:
    - stdout: "CPU(s): 8"
expect:
  refusal: false
  confidence: green
  answer_contains: ["8 cores"]
  iterations: 2
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if s.Name != "cores" || s.MaxLoops != 2 {
		t.Errorf("name/max_loops = %q/%d", s.Name, s.MaxLoops)
	}
	if len(s.Junior) != 2 || len(s.Senior) != 1 {
		t.Fatalf("junior=%d senior=%d, want 2/1", len(s.Junior), len(s.Senior))
	}
	if got := s.Probes["cpu.info"][0].Stdout; got != "CPU(s): 8" {
		t.Errorf("cpu.info stdout = %q", got)
	}
	if s.Expect == nil || s.Expect.Iterations == nil || *s.Expect.Iterations != 2 {
		t.Errorf("expect not parsed: %+v", s.Expect)
	}
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte("question: hi\nbogus: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseScenario_MissingQuestion(t *testing.T) {
	if _, err := ParseScenario([]byte("name: x\n")); err == nil {
		t.Fatal("expected error for missing question")
	}
}

func TestScriptedClient_ConsumesInOrder(t *testing.T) {
	c := NewScriptedClient(nil, nil).
		Junior(`{"probe_requests":["mem.info"]}`, `{"draft_answer":"16 GiB"}`).
		Senior(`{"verdict":"fix_and_accept","fixed_answer":"16 GiB total"}`)

	ctx := context.Background()
	jr, _, err := c.PlanOrDraft(ctx, "p1", nil)
	if err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if diff := cmp.Diff([]string{"mem.info"}, jr.Plan.ProbeRequests); diff != "" {
		t.Errorf("probe requests (-want +got):\n%s", diff)
	}
	jr, raw, err := c.PlanOrDraft(ctx, "p2", nil)
	if err != nil {
		t.Fatalf("call 2: %v", err)
	}
	if !jr.HasDraft() || *jr.Draft != "16 GiB" {
		t.Errorf("draft = %v (raw %q)", jr.Draft, raw)
	}
	sr, _, err := c.Audit(ctx, "a1", nil)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if sr.Verdict != llm.VerdictFixAndAccept {
		t.Errorf("verdict = %s, want fix_and_accept", sr.Verdict)
	}
	if c.JuniorCalls() != 2 || c.SeniorCalls() != 1 {
		t.Errorf("calls = %d/%d, want 2/1", c.JuniorCalls(), c.SeniorCalls())
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, c.JuniorPrompts()); diff != "" {
		t.Errorf("prompts (-want +got):\n%s", diff)
	}
}

func TestScriptedClient_Exhausted(t *testing.T) {
	c := NewScriptedClient(nil, nil)
	_, _, err := c.PlanOrDraft(context.Background(), "p", nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	sr, _, err := c.Audit(context.Background(), "p", nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if sr.Verdict != llm.VerdictRefuse {
		t.Errorf("verdict on failure = %s, want refuse", sr.Verdict)
	}
}

func TestScriptedClient_TransportError(t *testing.T) {
	c := NewScriptedClient([]ModelResponse{{Error: "connection refused"}}, nil)
	_, _, err := c.PlanOrDraft(context.Background(), "p", nil)
	if !errors.Is(err, llm.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestScriptedClient_Streams(t *testing.T) {
	c := NewScriptedClient(nil, nil).Junior(`{"draft_answer":"a","refuse":false}`)
	var got strings.Builder
	sink := llm.SinkFunc(func(role llm.Role, chunk string) {
		if role != llm.RoleJunior {
			t.Errorf("role = %s", role)
		}
		got.WriteString(chunk)
	})
	_, raw, err := c.PlanOrDraft(context.Background(), "p", sink)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != raw {
		t.Errorf("streamed %q, want %q", got.String(), raw)
	}
}

func TestScriptedClient_Cancelled(t *testing.T) {
	c := NewScriptedClient(nil, nil).Junior(`{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.PlanOrDraft(ctx, "p", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c.JuniorCalls() != 0 {
		t.Errorf("cancelled call counted")
	}
}

func TestScriptedExecutor(t *testing.T) {
	x := NewScriptedExecutor(map[string][]ProbeResponse{
		"cpu.info": {{Stdout: "first"}, {Stdout: "second"}},
		"disk.df":  {{ExitCode: 1, Error: "df failed"}},
	})
	cat := probe.StandardCatalog()
	ctx := context.Background()

	ev := x.Execute(ctx, cat, []string{"cpu.info", "disk.df", "mem.info", "bogus.probe"})
	if len(ev) != 4 {
		t.Fatalf("got %d records, want 4", len(ev))
	}
	if !ev[0].OK() || ev[0].Raw != "first" {
		t.Errorf("cpu.info = %+v", ev[0])
	}
	if ev[1].OK() || ev[1].Error != "df failed" || ev[1].ExitCode != 1 {
		t.Errorf("disk.df = %+v", ev[1])
	}
	if ev[2].OK() || !strings.Contains(ev[2].Error, "no canned output") {
		t.Errorf("mem.info = %+v", ev[2])
	}
	if ev[3].OK() || ev[3].Error != "probe not in catalog" {
		t.Errorf("bogus = %+v", ev[3])
	}

	// The last response repeats.
	for _, want := range []string{"second", "second"} {
		ev = x.Execute(ctx, cat, []string{"cpu.info"})
		if ev[0].Raw != want {
			t.Errorf("cpu.info = %q, want %q", ev[0].Raw, want)
		}
	}
	want := []string{"cpu.info", "disk.df", "mem.info", "cpu.info", "cpu.info"}
	if diff := cmp.Diff(want, x.Executed()); diff != "" {
		t.Errorf("executed (-want +got):\n%s", diff)
	}
}

func TestExpectCheck(t *testing.T) {
	yes, two := true, 2
	e := &Expect{
		Refusal:        &yes,
		Confidence:     "red",
		AnswerContains: []string{"cannot answer"},
		Iterations:     &two,
		Problems:       []string{"maximum verification"},
	}
	ok := Outcome{
		Refusal:    true,
		Confidence: "red",
		Answer:     "I cannot answer this question.",
		Iterations: 2,
		Problems:   []string{"Reached maximum verification loops"},
	}
	if diffs := e.Check(ok); len(diffs) != 0 {
		t.Errorf("unexpected diffs: %v", diffs)
	}

	bad := ok
	bad.Refusal = false
	bad.Confidence = "green"
	bad.Iterations = 1
	bad.Problems = nil
	if diffs := e.Check(bad); len(diffs) != 4 {
		t.Errorf("got %d diffs, want 4: %v", len(diffs), diffs)
	}

	if diffs := e.Check(Outcome{Err: errors.New("boom")}); len(diffs) != 1 {
		t.Errorf("error outcome diffs = %v", diffs)
	}
	wantErr := &Expect{Error: "timed out"}
	if diffs := wantErr.Check(Outcome{Err: errors.New("orchestration timed out")}); len(diffs) != 0 {
		t.Errorf("error expectation diffs = %v", diffs)
	}
	if diffs := (*Expect)(nil).Check(bad); diffs != nil {
		t.Errorf("nil expect diffs = %v", diffs)
	}
}
