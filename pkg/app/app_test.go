package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/config"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/replay"
	dtrace "github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

const testCatalog = `apiVersion: catalog/v0
probes:
  - id: cpu.info
    label: CPU
    command: [lscpu]
`

const lscpu = "CPU(s): 8\nCore(s) per socket: 4\nSocket(s): 1\nModel name: Test CPU\n"

func scripted() (*replay.ScriptedClient, *replay.ScriptedExecutor) {
	client := replay.NewScriptedClient(nil, nil).
		Junior(
			`{"intent":"cores","probe_requests":["cpu.info"]}`,
			`{"draft_answer":"You have 4 cores.","scores":{"overall":0.9}}`,
		).
		Senior(`{"verdict":"approve","scores":{"evidence":0.95,"reasoning":0.95,"coverage":0.95,"overall":0.95}}`)
	exec := replay.NewScriptedExecutor(map[string][]replay.ProbeResponse{
		"cpu.info": {{Stdout: lscpu}},
	})
	return client, exec
}

func TestNew_StandardCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.FastPath = false
	client, exec := scripted()

	a, err := New(cfg, Options{Client: client, Executor: exec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Catalog.Len() == 0 || !a.Catalog.IsValid("cpu.info") {
		t.Fatalf("standard catalog not loaded: %v", a.Catalog.AvailableProbes())
	}
	if a.Engine.MaxLoops() != cfg.MaxLoops {
		t.Errorf("MaxLoops = %d, want %d", a.Engine.MaxLoops(), cfg.MaxLoops)
	}

	ans, err := a.Engine.Process(context.Background(), "how many cores do I have?")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if ans.IsRefusal || ans.Confidence != engine.Green {
		t.Errorf("answer = %+v, want green approval", ans)
	}
	if ans.Source != engine.SourceLoop {
		t.Errorf("source = %q, want loop with fast path off", ans.Source)
	}
}

func TestNew_FastPathFromConfig(t *testing.T) {
	cfg := config.Default()
	client, exec := scripted()

	a, err := New(cfg, Options{Client: client, Executor: exec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ans, err := a.Engine.Process(context.Background(), "how many cpu cores do I have")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if ans.Source != engine.SourceFastPath {
		t.Errorf("source = %q, want fast_path", ans.Source)
	}
	if client.JuniorCalls() != 0 {
		t.Errorf("junior calls = %d, want none", client.JuniorCalls())
	}
}

func TestNew_CatalogFileAndTrace(t *testing.T) {
	dir := t.TempDir()
	catPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	tracePath := filepath.Join(dir, "trace.jsonl")

	cfg := config.Default()
	cfg.FastPath = false
	cfg.CatalogPath = catPath
	cfg.Debug.TraceFile = tracePath
	client, exec := scripted()

	a, err := New(cfg, Options{Client: client, Executor: exec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Catalog.Len() != 1 {
		t.Errorf("catalog len = %d, want 1", a.Catalog.Len())
	}
	if _, err := a.Engine.Process(context.Background(), "how many cores do I have?"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res, err := dtrace.VerifyFile(tracePath)
	if err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if !res.Valid {
		t.Errorf("trace chain invalid: %+v", res)
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(cfg, Options{}); err == nil || !strings.Contains(err.Error(), "load catalog") {
		t.Errorf("err = %v, want catalog load failure", err)
	}

	cfg = config.Default()
	cfg.Debug.TraceFile = filepath.Join(t.TempDir(), "no", "such", "dir", "trace.jsonl")
	if _, err := New(cfg, Options{}); err == nil {
		t.Error("unwritable trace file should fail")
	}
}

func TestNew_DefaultClient(t *testing.T) {
	cfg := config.Default()
	cfg.OrchestrationTimeout = config.Duration(time.Second)
	a, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New with default transport: %v", err)
	}
	if a.Engine == nil {
		t.Fatal("engine not built")
	}
}

func TestNewLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		logger, err := NewLogger(verbose)
		if err != nil {
			t.Fatalf("NewLogger(%v): %v", verbose, err)
		}
		if got := logger.Core().Enabled(-1); got != verbose {
			t.Errorf("debug enabled = %v, want %v", got, verbose)
		}
	}
}
