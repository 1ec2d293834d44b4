package probe

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/goleak"
)

type fakeRunner struct {
	calls  atomic.Int32
	output map[string]string
	fail   map[string]bool
	slow   map[string]bool
	codes  map[string]int
}

func (f *fakeRunner) Run(ctx context.Context, argv []string) ([]byte, []byte, int, error) {
	f.calls.Add(1)
	key := strings.Join(argv, " ")
	if f.slow[key] {
		<-ctx.Done()
		return nil, nil, -1, ctx.Err()
	}
	if f.fail[key] {
		return nil, nil, -1, errors.New("exec: not found")
	}
	if code := f.codes[key]; code != 0 {
		return nil, []byte("boom"), code, nil
	}
	return []byte(f.output[key]), nil, 0, nil
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Probe{
		{ID: "a.ok", Label: "ok", Command: []string{"uptime"}},
		{ID: "a.fail", Label: "fail", Command: []string{"lscpu"}},
		{ID: "a.slow", Label: "slow", Command: []string{"lsblk"}, Timeout: "20ms"},
		{ID: "a.exit", Label: "exit", Command: []string{"df"}},
		{ID: "a.secret", Label: "secret", Command: []string{"ps", "aux"}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCommandExecutor_MixedResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{
		output: map[string]string{"uptime": "up 3 days", "ps aux": "svc --token=abc123"},
		fail:   map[string]bool{"lscpu": true},
		slow:   map[string]bool{"lsblk": true},
		codes:  map[string]int{"df": 2},
	}
	e := NewCommandExecutor(nil)
	e.Runner = runner

	ids := []string{"a.ok", "a.fail", "a.slow", "a.exit", "a.secret", "not.there"}
	got := e.Execute(context.Background(), testCatalog(t), ids)

	if len(got) != len(ids) {
		t.Fatalf("len = %d, want %d", len(got), len(ids))
	}
	for i, id := range ids {
		if got[i].ProbeID != id {
			t.Errorf("result[%d].ProbeID = %q, want %q", i, got[i].ProbeID, id)
		}
	}
	if !got[0].OK() || got[0].Raw != "up 3 days" {
		t.Errorf("ok probe = %+v", got[0])
	}
	if got[1].Status != StatusError {
		t.Errorf("failing probe status = %q", got[1].Status)
	}
	if got[2].Status != StatusError || !strings.Contains(got[2].Error, "timed out") {
		t.Errorf("slow probe = %+v", got[2])
	}
	if got[3].Status != StatusError || got[3].ExitCode != 2 {
		t.Errorf("exit probe = %+v", got[3])
	}
	if strings.Contains(got[4].Raw, "abc123") {
		t.Errorf("secret not redacted: %q", got[4].Raw)
	}
	if got[5].Status != StatusError {
		t.Errorf("unknown probe status = %q", got[5].Status)
	}
	if n := runner.calls.Load(); n != 5 {
		t.Errorf("runner calls = %d, want 5 (unknown id must not run)", n)
	}
}

func TestCommandExecutor_CallerCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewCommandExecutor(nil)
	e.Runner = &fakeRunner{slow: map[string]bool{"uptime": true}}
	e.Timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := e.Execute(ctx, testCatalog(t), []string{"a.ok"})
	if got[0].Status != StatusError {
		t.Errorf("status = %q, want error", got[0].Status)
	}
}

func TestCommandExecutor_Empty(t *testing.T) {
	e := NewCommandExecutor(nil)
	if got := e.Execute(context.Background(), testCatalog(t), nil); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc\n[truncated]"},
		{"ab°C", 3, "ab\n[truncated]"},
		{"日本語", 4, "日\n[truncated]"},
		{"日本語", 6, "日本\n[truncated]"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}
