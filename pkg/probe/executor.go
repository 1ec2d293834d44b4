package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps how many probes of one batch run at once.
const DefaultConcurrency = 4

// maxOutputBytes truncates runaway probe output.
const maxOutputBytes = 64 * 1024

// Runner runs a single command. CommandExecutor uses ExecRunner by default;
// tests substitute their own.
type Runner interface {
	Run(ctx context.Context, argv []string) (stdout, stderr []byte, exitCode int, err error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes argv. A non-zero exit is reported through exitCode, not err.
func (ExecRunner) Run(ctx context.Context, argv []string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = []string{"LC_ALL=C", "PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
		}
		return stdout.Bytes(), stderr.Bytes(), -1, fmt.Errorf("execute command %q: %w", argv[0], err)
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

// CommandExecutor runs probe batches concurrently, each bounded by its own
// timeout and by the caller's context.
type CommandExecutor struct {
	Runner      Runner
	Redactor    *Redactor
	Concurrency int
	// Timeout replaces DefaultTimeout for probes whose catalog entry sets
	// none.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCommandExecutor returns an executor using os/exec and the default
// redaction rules.
func NewCommandExecutor(logger *zap.Logger) *CommandExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	red, err := NewRedactor(DefaultRedactionRules)
	if err != nil {
		panic(fmt.Sprintf("default redaction rules: %v", err))
	}
	return &CommandExecutor{
		Runner:      ExecRunner{},
		Redactor:    red,
		Concurrency: DefaultConcurrency,
		Logger:      logger,
	}
}

// Execute fans out over ids and waits for every probe to finish or fail.
func (e *CommandExecutor) Execute(ctx context.Context, catalog *Catalog, ids []string) []Evidence {
	results := make([]Evidence, len(ids))
	if len(ids) == 0 {
		return results
	}
	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = e.runOne(ctx, catalog, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *CommandExecutor) runOne(ctx context.Context, catalog *Catalog, id string) Evidence {
	p, ok := catalog.Get(id)
	if !ok {
		return Evidence{ProbeID: id, Status: StatusError, Error: "probe not in catalog", ExitCode: -1}
	}
	timeout := p.TimeoutDuration()
	if p.Timeout == "" && e.Timeout > 0 {
		timeout = e.Timeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := e.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	start := time.Now()
	stdout, stderr, code, err := runner.Run(pctx, p.Command)
	ev := Evidence{
		ProbeID:  id,
		Command:  p.CommandText(),
		ExitCode: code,
		Duration: time.Since(start),
	}

	switch {
	case pctx.Err() == context.DeadlineExceeded:
		ev.Status = StatusError
		ev.Error = fmt.Sprintf("timed out after %s", timeout)
	case err != nil:
		ev.Status = StatusError
		ev.Error = err.Error()
	case code != 0:
		ev.Status = StatusError
		ev.Error = fmt.Sprintf("exit code %d: %s", code, strings.TrimSpace(e.Redactor.Redact(string(stderr))))
	default:
		ev.Status = StatusOK
	}
	ev.Raw = e.Redactor.Redact(truncate(string(stdout), maxOutputBytes))

	e.logger().Debug("probe finished",
		zap.String("probe", id),
		zap.String("status", string(ev.Status)),
		zap.Duration("duration", ev.Duration),
	)
	return ev
}

func (e *CommandExecutor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n[truncated]"
}
