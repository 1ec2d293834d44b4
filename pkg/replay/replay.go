// Package replay runs the answer engine against canned model responses and
// probe outputs, so a recorded conversation can be re-executed without a
// model backend or a live machine.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// Scenario is the top-level replay document.
type Scenario struct {
	Name     string                     `yaml:"name"`
	Question string                     `yaml:"question"`
	MaxLoops int                        `yaml:"max_loops,omitempty"`
	FastPath bool                       `yaml:"fast_path,omitempty"`
	Junior   []ModelResponse            `yaml:"junior,omitempty"`
	Senior   []ModelResponse            `yaml:"senior,omitempty"`
	Probes   map[string][]ProbeResponse `yaml:"probes,omitempty"`
	Expect   *Expect                    `yaml:"expect,omitempty"`
}

// ModelResponse is one canned model reply. A non-empty Error simulates a
// transport failure.
type ModelResponse struct {
	Raw   string `yaml:"raw"`
	Error string `yaml:"error,omitempty"`
}

// ProbeResponse is one canned probe run.
type ProbeResponse struct {
	ExitCode int    `yaml:"exit_code"`
	Stdout   string `yaml:"stdout,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML, rejecting unknown fields.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if strings.TrimSpace(s.Question) == "" && s.Expect == nil {
		return nil, fmt.Errorf("parse scenario: question or expect is required")
	}
	return &s, nil
}

// ErrExhausted is returned when a script runs out of canned responses.
var ErrExhausted = errors.New("replay: exhausted canned responses")

// ScriptedClient implements llm.Client from queued responses. Replies are
// decoded with the production decoders.
type ScriptedClient struct {
	mu            sync.Mutex
	junior        []ModelResponse
	senior        []ModelResponse
	juniorPrompts []string
	seniorPrompts []string
}

// NewScriptedClient queues junior and senior replies.
func NewScriptedClient(junior, senior []ModelResponse) *ScriptedClient {
	return &ScriptedClient{
		junior: append([]ModelResponse(nil), junior...),
		senior: append([]ModelResponse(nil), senior...),
	}
}

// Junior queues more junior replies.
func (c *ScriptedClient) Junior(raw ...string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range raw {
		c.junior = append(c.junior, ModelResponse{Raw: r})
	}
	return c
}

// Senior queues more senior replies.
func (c *ScriptedClient) Senior(raw ...string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range raw {
		c.senior = append(c.senior, ModelResponse{Raw: r})
	}
	return c
}

// PlanOrDraft returns the next junior reply.
func (c *ScriptedClient) PlanOrDraft(ctx context.Context, prompt string, sink llm.Sink) (llm.JuniorResponse, string, error) {
	raw, err := c.next(ctx, &c.junior, &c.juniorPrompts, prompt, llm.RoleJunior, sink)
	if err != nil {
		return llm.JuniorResponse{}, raw, err
	}
	return llm.DecodeJunior(raw), raw, nil
}

// Audit returns the next senior reply.
func (c *ScriptedClient) Audit(ctx context.Context, prompt string, sink llm.Sink) (llm.SeniorResponse, string, error) {
	raw, err := c.next(ctx, &c.senior, &c.seniorPrompts, prompt, llm.RoleSenior, sink)
	if err != nil {
		return llm.SeniorResponse{Verdict: llm.VerdictRefuse}, raw, err
	}
	return llm.DecodeSenior(raw), raw, nil
}

func (c *ScriptedClient) next(ctx context.Context, queue *[]ModelResponse, prompts *[]string, prompt string, role llm.Role, sink llm.Sink) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	*prompts = append(*prompts, prompt)
	if len(*queue) == 0 {
		c.mu.Unlock()
		return "", fmt.Errorf("%w for %s (call %d)", ErrExhausted, role, len(*prompts))
	}
	resp := (*queue)[0]
	*queue = (*queue)[1:]
	c.mu.Unlock()

	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", llm.ErrTransport, resp.Error)
	}
	if sink != nil {
		for _, f := range strings.SplitAfter(resp.Raw, ",") {
			sink.Token(role, f)
		}
	}
	return resp.Raw, nil
}

// JuniorCalls returns how many junior calls were made.
func (c *ScriptedClient) JuniorCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.juniorPrompts)
}

// SeniorCalls returns how many senior calls were made.
func (c *ScriptedClient) SeniorCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seniorPrompts)
}

// JuniorPrompts returns the prompts sent to the junior so far.
func (c *ScriptedClient) JuniorPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.juniorPrompts...)
}

// ScriptedExecutor implements probe.Executor from canned outputs. Each id's
// responses are consumed in order; the last one repeats once the queue is
// down to one.
type ScriptedExecutor struct {
	mu       sync.Mutex
	probes   map[string][]ProbeResponse
	executed []string
}

// NewScriptedExecutor builds an executor from canned responses.
func NewScriptedExecutor(probes map[string][]ProbeResponse) *ScriptedExecutor {
	cp := make(map[string][]ProbeResponse, len(probes))
	for k, v := range probes {
		cp[k] = append([]ProbeResponse(nil), v...)
	}
	return &ScriptedExecutor{probes: cp}
}

// Execute returns canned evidence for each id. Unknown ids and ids with no
// canned output yield error records.
func (x *ScriptedExecutor) Execute(ctx context.Context, catalog *probe.Catalog, ids []string) []probe.Evidence {
	out := make([]probe.Evidence, 0, len(ids))
	for _, id := range ids {
		p, ok := catalog.Get(id)
		if !ok {
			out = append(out, probe.Evidence{ProbeID: id, Status: probe.StatusError, Error: "probe not in catalog", ExitCode: -1})
			continue
		}
		x.mu.Lock()
		x.executed = append(x.executed, id)
		queue := x.probes[id]
		var resp *ProbeResponse
		if len(queue) > 0 {
			r := queue[0]
			resp = &r
			if len(queue) > 1 {
				x.probes[id] = queue[1:]
			}
		}
		x.mu.Unlock()

		ev := probe.Evidence{ProbeID: id, Command: p.CommandText(), Duration: time.Millisecond}
		switch {
		case ctx.Err() != nil:
			ev.Status, ev.Error, ev.ExitCode = probe.StatusError, ctx.Err().Error(), -1
		case resp == nil:
			ev.Status, ev.Error, ev.ExitCode = probe.StatusError, "replay: no canned output", -1
		case resp.Error != "" || resp.ExitCode != 0:
			ev.Status, ev.Error, ev.ExitCode, ev.Raw = probe.StatusError, resp.Error, resp.ExitCode, resp.Stdout
		default:
			ev.Status, ev.Raw = probe.StatusOK, resp.Stdout
		}
		out = append(out, ev)
	}
	return out
}

// Executed returns every id actually run, in order.
func (x *ScriptedExecutor) Executed() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.executed...)
}
