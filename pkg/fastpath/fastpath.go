// Package fastpath answers a small allow-listed set of factual questions
// from a single probe, without any model call. Answers are unaudited.
package fastpath

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// Reliability is the fixed score attached to fast-path answers.
const Reliability = 0.99

// Rule maps a question pattern to one probe and a deterministic formatter.
type Rule struct {
	Name string
	// When is an expr-lang boolean over the lowercased question `q`.
	When    string
	ProbeID string
	Format  func(raw string) (string, error)
}

// Env is the expression environment for Rule.When.
type Env struct {
	Q string `expr:"q"`
}

// Answer is a fast-path result.
type Answer struct {
	Rule     string
	Text     string
	Evidence probe.Evidence
}

// Matcher holds compiled rules. It is immutable after construction.
type Matcher struct {
	rules    []Rule
	programs []*vm.Program
}

// NewMatcher compiles every rule condition.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{}
	for _, r := range rules {
		if r.ProbeID == "" || r.Format == nil {
			return nil, fmt.Errorf("fast-path rule %q: probe and formatter are required", r.Name)
		}
		program, err := expr.Compile(r.When, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("fast-path rule %q: %w", r.Name, err)
		}
		m.rules = append(m.rules, r)
		m.programs = append(m.programs, program)
	}
	return m, nil
}

// DefaultMatcher returns the built-in RAM, CPU and root-disk rules.
func DefaultMatcher() *Matcher {
	m, err := NewMatcher(DefaultRules)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the first rule whose condition holds for question.
func (m *Matcher) Match(question string) (Rule, bool) {
	env := Env{Q: strings.ToLower(strings.TrimSpace(question))}
	for i, program := range m.programs {
		out, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		if ok, _ := out.(bool); ok {
			return m.rules[i], true
		}
	}
	return Rule{}, false
}

// Try answers question if a rule matches, its probe is in the catalog, the
// probe succeeds and its output parses. Any miss returns ok=false so the
// caller falls through to the full loop; ev is still returned when a probe
// ran so the caller can reuse it.
func (m *Matcher) Try(ctx context.Context, question string, catalog *probe.Catalog, exec probe.Executor) (ans *Answer, ev []probe.Evidence, ok bool) {
	rule, matched := m.Match(question)
	if !matched || !catalog.IsValid(rule.ProbeID) {
		return nil, nil, false
	}
	ev = exec.Execute(ctx, catalog, []string{rule.ProbeID})
	if len(ev) != 1 || !ev[0].OK() {
		return nil, ev, false
	}
	text, err := rule.Format(ev[0].Raw)
	if err != nil {
		return nil, ev, false
	}
	return &Answer{Rule: rule.Name, Text: text, Evidence: ev[0]}, ev, true
}

// DefaultRules is the allow-listed question set. Conditions match whole
// words and fall through whenever the question names a process, usage or a
// filesystem other than root.
var DefaultRules = []Rule{
	{
		Name: "ram",
		When: `q matches "\\b(ram|memory)\\b"
			and (q contains "how much" or q matches "\\b(total|installed)\\b")
			and not (q matches "` + processWords + `")
			and not (q matches "\\bswap\\b")`,
		ProbeID: "mem.info",
		Format:  formatRAM,
	},
	{
		Name: "cpu",
		When: `q matches "\\b(cpus?|cores?|processors?|threads?)\\b"
			and (q contains "how many" or q matches "\\bnumber of\\b")
			and not (q matches "` + processWords + `")
			and not (q matches "\\b(usage|load|percent|hot|temperature|speed)\\b")`,
		ProbeID: "cpu.info",
		Format:  formatCPU,
	},
	{
		Name: "disk",
		When: `q matches "\\b(disk|space|storage)\\b"
			and (q matches "\\b(root|free|available|left)\\b" or q matches "(^|\\s)/(\\s|$|\\?)")
			and not (q matches "(^|\\s)/[a-z0-9_.~-]")
			and not (q matches "\\b(home|boot|usb|external|partitions?|drives?|mount|mounted|folders?|directory|files?)\\b")
			and not (q matches "\\b(why|clean|delete|remove|free up)\\b")`,
		ProbeID: "disk.df",
		Format:  formatDisk,
	},
}

// processWords marks questions about one program's consumption rather than
// the machine's totals.
const processWords = `\\b(does|use|uses|using|used|take|takes|taking|consume|consumes|consuming|process|processes|program|programs|app|apps|application)\\b`

func formatRAM(raw string) (string, error) {
	m, err := probe.ParseMemInfo(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("You have %.1f GiB of RAM installed, with %.1f GiB currently available.",
		m.TotalGiB(), m.AvailableGiB()), nil
}

func formatCPU(raw string) (string, error) {
	c, err := probe.ParseLscpu(raw)
	if err != nil {
		return "", err
	}
	model := c.Model
	if model == "" {
		model = "unknown model"
	}
	return fmt.Sprintf("Your CPU (%s) has %d physical cores and %d threads (logical CPUs).",
		model, c.PhysicalCores(), c.Threads), nil
}

func formatDisk(raw string) (string, error) {
	d, err := probe.ParseDf(raw, "/")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Your root filesystem has %s total, %s used, and %s available (%s used).",
		d.Size, d.Used, d.Available, d.UsePercent), nil
}
