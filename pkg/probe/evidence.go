package probe

import (
	"context"
	"time"
)

// Status is the outcome of a single probe run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Evidence is the recorded result of one probe execution. Executors create
// it; nothing mutates it afterwards.
type Evidence struct {
	ProbeID  string        `json:"probe_id"  yaml:"probe_id"`
	Command  string        `json:"command"   yaml:"command"`
	Status   Status        `json:"status"    yaml:"status"`
	Raw      string        `json:"raw"       yaml:"raw"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Duration time.Duration `json:"duration"  yaml:"duration"`
}

// OK reports whether the probe succeeded.
func (e Evidence) OK() bool { return e.Status == StatusOK }

// Executor runs a batch of catalog-approved probes. Implementations return
// one record per id, in request order, and represent failures per record.
// Ids missing from the catalog yield an error record and are never run.
type Executor interface {
	Execute(ctx context.Context, catalog *Catalog, ids []string) []Evidence
}
