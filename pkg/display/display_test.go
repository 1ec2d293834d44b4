package display

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

func sampleAnswer() *engine.FinalAnswer {
	return &engine.FinalAnswer{
		Answer:     "You have 8 cores.",
		Confidence: engine.Green,
		Scores:     llm.Uniform(0.93),
		Verdict:    llm.VerdictApprove,
		Problems:   []string{},
		Citations: []probe.Evidence{
			{ProbeID: "cpu.info", Command: "lscpu", Status: probe.StatusOK},
			{ProbeID: "mem.info", Command: "cat /proc/meminfo", Status: probe.StatusError, Error: "timed out after 5s"},
		},
		LoopIterations: 2,
		Source:         engine.SourceLoop,
		Duration:       1500 * time.Millisecond,
	}
}

func TestAnswer(t *testing.T) {
	out := Answer(sampleAnswer(), Options{Citations: true})
	for _, want := range []string{"GREEN", "0.93", "You have 8 cores.", "cpu.info", "lscpu", "timed out after 5s", "2 iteration(s)", "approve", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Problems") {
		t.Errorf("empty problem list rendered:\n%s", out)
	}
}

func TestAnswer_Refusal(t *testing.T) {
	ans := &engine.FinalAnswer{
		Answer:     engine.RefusalText("No evidence could be gathered."),
		IsRefusal:  true,
		Confidence: engine.Red,
		Problems:   []string{"No evidence could be gathered", "Reached maximum verification loops"},
		Source:     engine.SourceLoop,
	}
	out := Answer(ans, Options{})
	for _, want := range []string{"RED", "refused", "I cannot answer this question.", "Reached maximum verification loops"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnswer_Markdown(t *testing.T) {
	ans := sampleAnswer()
	ans.Answer = "Your CPU has **8** cores."
	out := Answer(ans, Options{Markdown: true, Width: 60})
	if !strings.Contains(out, "cores") {
		t.Errorf("markdown body missing:\n%s", out)
	}
}

func TestAnswer_Debug(t *testing.T) {
	ans := sampleAnswer()
	ans.Debug = trace.New("run-1", "q")
	ans.Debug.Append(trace.DebugIteration{Iteration: 1, Role: "junior", Prompt: "PLAN PROMPT", RawResponse: "{}"})
	out := Answer(ans, Options{Debug: true})
	if !strings.Contains(out, "PLAN PROMPT") || !strings.Contains(out, "#1 junior") {
		t.Errorf("debug trace missing:\n%s", out)
	}
	if strings.Contains(Answer(ans, Options{}), "PLAN PROMPT") {
		t.Error("debug trace rendered without Debug option")
	}
}

func TestProbes(t *testing.T) {
	cat := probe.StandardCatalog()
	out := Probes(cat, 100)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != cat.Len() {
		t.Fatalf("got %d lines, want %d", len(lines), cat.Len())
	}
	if !strings.Contains(out, "cpu.info") || !strings.Contains(out, "lscpu") {
		t.Errorf("catalog table missing cpu.info:\n%s", out)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev   engine.Event
		want string
	}{
		{engine.Event{Kind: engine.EventIterationStart, Iteration: 2}, "iteration 2/3: planning"},
		{engine.Event{Kind: engine.EventJuniorResponse, Iteration: 1, Data: map[string]any{"probes": []string{"cpu.info", "mem.info"}}}, "iteration 1/3: requesting cpu.info, mem.info"},
		{engine.Event{Kind: engine.EventJuniorResponse, Iteration: 1, Data: map[string]any{"probes": []string(nil), "draft": true}}, "iteration 1/3: drafted an answer"},
		{engine.Event{Kind: engine.EventProbesExecuted, Data: map[string]any{"statuses": map[string]string{"mem.info": "error", "cpu.info": "ok"}}}, "ran cpu.info, mem.info (error)"},
		{engine.Event{Kind: engine.EventVerdict, Iteration: 3, Message: "needs_more_probes", Data: map[string]any{"overall": 0.4}}, "iteration 3/3: auditor says needs more probes (0.40)"},
		{engine.Event{Kind: engine.EventToken}, ""},
	}
	for _, tt := range tests {
		if got := Describe(tt.ev, 3); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.ev.Kind, got, tt.want)
		}
	}
}

func TestRelay(t *testing.T) {
	var r Relay
	r.OnEvent(engine.Event{Kind: engine.EventClassified}) // detached: dropped

	ch := make(chan engine.Event, 1)
	r.Attach(ch)
	r.OnEvent(engine.Event{Kind: engine.EventClassified})
	r.OnEvent(engine.Event{Kind: engine.EventFinished}) // full: dropped, must not block
	if got := <-ch; got.Kind != engine.EventClassified {
		t.Errorf("got %s, want classified", got.Kind)
	}
	r.Detach()
	r.OnEvent(engine.Event{Kind: engine.EventFinished})
	if len(ch) != 0 {
		t.Error("event delivered after Detach")
	}
}

func TestProgressUpdate(t *testing.T) {
	events := make(chan engine.Event)
	cancelled := false
	m := NewProgress(events, 3, nil, func() { cancelled = true })

	next, cmd := m.Update(eventMsg(engine.Event{Kind: engine.EventIterationStart, Iteration: 1}))
	m = next.(Progress)
	if cmd == nil {
		t.Error("event did not re-arm the listener")
	}
	if !strings.Contains(m.View(), "iteration 1/3: planning") {
		t.Errorf("view = %q", m.View())
	}

	next, _ = m.Update(eventMsg(engine.Event{Kind: engine.EventToken}))
	m = next.(Progress)
	if !strings.Contains(m.View(), "(1 chunks)") {
		t.Errorf("token count missing: %q", m.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Progress)
	if !cancelled || !strings.Contains(m.View(), "cancelling") {
		t.Errorf("ctrl+c: cancelled=%v view=%q", cancelled, m.View())
	}

	wantErr := errors.New("boom")
	next, cmd = m.Update(doneMsg{err: wantErr})
	m = next.(Progress)
	if cmd == nil || m.View() != "" {
		t.Errorf("done: cmd=%v view=%q", cmd, m.View())
	}
	if _, err := m.Result(); !errors.Is(err, wantErr) {
		t.Errorf("Result err = %v", err)
	}
}
