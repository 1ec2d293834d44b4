package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/display"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/replay"
)

func newSession(t *testing.T, ask AskFunc) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	s := New(ask, probe.StandardCatalog(), display.Options{Width: 100})
	s.SetOutput(&buf)
	return s, &buf
}

func scriptedAsk() AskFunc {
	client := replay.NewScriptedClient(nil, nil).
		Junior(`{"probe_requests":["disk.df"],"draft_answer":"9.0G is free on /."}`).
		Senior(`{"verdict":"approve","scores":{"evidence":0.9,"reasoning":0.9,"coverage":0.9,"overall":0.9}}`)
	exec := replay.NewScriptedExecutor(map[string][]replay.ProbeResponse{
		"disk.df": {{Stdout: "Filesystem Size Used Avail Use% Mounted on\n/dev/sda2 100G 91G 9.0G 91% /\n"}},
	})
	e := engine.New(client, exec, probe.StandardCatalog(), engine.Options{Debug: engine.DebugConfig{Enabled: true}})
	return e.Process
}

func TestHandleLine_Question(t *testing.T) {
	s, buf := newSession(t, scriptedAsk())
	if quit := s.HandleLine(context.Background(), "how full is my disk?"); quit {
		t.Fatal("question quit the session")
	}
	if !strings.Contains(buf.String(), "9.0G is free on /.") {
		t.Errorf("answer not rendered:\n%s", buf.String())
	}

	buf.Reset()
	s.HandleLine(context.Background(), "/history")
	if !strings.Contains(buf.String(), "1. ✓ [green] how full is my disk?") {
		t.Errorf("history = %q", buf.String())
	}

	buf.Reset()
	s.HandleLine(context.Background(), "/trace")
	if !strings.Contains(buf.String(), "#1 junior") {
		t.Errorf("trace = %q", buf.String())
	}
}

func TestHandleLine_Error(t *testing.T) {
	s, buf := newSession(t, func(context.Context, string) (*engine.FinalAnswer, error) {
		return nil, errors.New("llm transport: connection refused")
	})
	s.HandleLine(context.Background(), "how many cores?")
	if !strings.Contains(buf.String(), "Error: llm transport: connection refused") {
		t.Errorf("output = %q", buf.String())
	}
	buf.Reset()
	s.HandleLine(context.Background(), "/history")
	if !strings.Contains(buf.String(), "No questions asked yet.") {
		t.Errorf("failed question recorded in history: %q", buf.String())
	}
}

func TestHandleLine_Commands(t *testing.T) {
	s, buf := newSession(t, scriptedAsk())
	ctx := context.Background()

	s.HandleLine(ctx, "/probes")
	if !strings.Contains(buf.String(), "cpu.info") {
		t.Errorf("/probes output = %q", buf.String())
	}

	buf.Reset()
	s.HandleLine(ctx, "/debug on")
	if !s.render.Debug || s.prompt() != "anna[debug]> " {
		t.Errorf("debug not enabled")
	}
	s.HandleLine(ctx, "/debug")
	if s.render.Debug {
		t.Errorf("/debug did not toggle off")
	}

	buf.Reset()
	s.HandleLine(ctx, "/trace")
	if !strings.Contains(buf.String(), "No questions asked yet.") {
		t.Errorf("/trace output = %q", buf.String())
	}

	buf.Reset()
	s.HandleLine(ctx, "/bogus")
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Errorf("unknown command output = %q", buf.String())
	}

	buf.Reset()
	s.HandleLine(ctx, "/help")
	for _, cmd := range []string{"/probes", "/debug", "/trace", "/history", "/quit"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("help output missing %q", cmd)
		}
	}

	if !s.HandleLine(ctx, "/quit") {
		t.Error("/quit did not quit")
	}
	if s.HandleLine(ctx, "   ") {
		t.Error("blank line quit")
	}
}
