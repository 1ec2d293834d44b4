package llm

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// ProbeOption is a catalog entry as shown to the junior.
type ProbeOption struct {
	ID    string
	Label string
}

// EvidenceLine is a summarised evidence record as shown in prompts.
type EvidenceLine struct {
	ProbeID string
	Status  probe.Status
	Summary string
}

// PlanInput feeds PlanPrompt.
type PlanInput struct {
	Question  string
	Iteration int
	MaxLoops  int
	Probes    []ProbeOption
	Evidence  []EvidenceLine
	Feedback  []string
}

// AuditInput feeds AuditPrompt.
type AuditInput struct {
	Question   string
	Draft      string
	Evidence   []EvidenceLine
	SelfScores Scores
	Probes     []ProbeOption
}

// EvidenceLines summarises evidence for prompt use.
func EvidenceLines(evidence []probe.Evidence) []EvidenceLine {
	lines := make([]EvidenceLine, 0, len(evidence))
	for _, ev := range evidence {
		lines = append(lines, EvidenceLine{ProbeID: ev.ProbeID, Status: ev.Status, Summary: SummarizeEvidence(ev)})
	}
	return lines
}

// ProbeOptions lists the catalog for prompt use.
func ProbeOptions(c *probe.Catalog) []ProbeOption {
	var opts []ProbeOption
	for _, p := range c.Probes() {
		opts = append(opts, ProbeOption{ID: p.ID, Label: p.Label})
	}
	return opts
}

// JuniorSystemPrompt is sent as the system message on junior calls.
const JuniorSystemPrompt = `You are Anna's junior analyst on a Linux machine. You never run commands
yourself: you request probes by catalog id and answer only from their output.
Reply with a single JSON object matching this schema and nothing else.

{{ .Schema }}`

// SeniorSystemPrompt is sent as the system message on senior calls.
const SeniorSystemPrompt = `You are Anna's senior auditor. You check a drafted answer against the probe
evidence it claims to rely on. Approve only what the evidence supports.
Reply with a single JSON object matching this schema and nothing else.

{{ .Schema }}`

const planTemplate = `QUESTION: {{ .Question }}
ITERATION: {{ .Iteration }} of {{ .MaxLoops }}

AVAILABLE PROBES:
{{- range .Probes }}
- {{ .ID }}: {{ .Label }}
{{- end }}

EVIDENCE:
{{- if .Evidence }}
{{- range .Evidence }}
- {{ .ProbeID }} [{{ .Status }}] {{ .Summary }}
{{- end }}
{{- else }}
(none yet: request probes before drafting)
{{- end }}
{{- if .Feedback }}

AUDITOR FEEDBACK:
{{- range .Feedback }}
- {{ . }}
{{- end }}
{{- end }}
`

const auditTemplate = `QUESTION: {{ .Question }}

DRAFT ANSWER:
{{ .Draft }}

JUNIOR SELF-SCORES: evidence={{ printf "%.2f" .SelfScores.Evidence }} reasoning={{ printf "%.2f" .SelfScores.Reasoning }} coverage={{ printf "%.2f" .SelfScores.Coverage }} overall={{ printf "%.2f" .SelfScores.Overall }}

EVIDENCE:
{{- range .Evidence }}
- {{ .ProbeID }} [{{ .Status }}] {{ .Summary }}
{{- end }}

PROBES YOU MAY REQUEST:
{{- range .Probes }} {{ .ID }}{{ end }}
`

var (
	planTmpl  = template.Must(template.New("plan").Parse(planTemplate))
	auditTmpl = template.Must(template.New("audit").Parse(auditTemplate))
)

// PlanPrompt renders the junior's user prompt.
func PlanPrompt(in PlanInput) (string, error) {
	var buf bytes.Buffer
	if err := planTmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render plan prompt: %w", err)
	}
	return buf.String(), nil
}

// AuditPrompt renders the senior's user prompt.
func AuditPrompt(in AuditInput) (string, error) {
	var buf bytes.Buffer
	if err := auditTmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render audit prompt: %w", err)
	}
	return buf.String(), nil
}

// SystemPrompts renders both system prompts with their response schemas.
func SystemPrompts() (junior, senior string, err error) {
	js, err := GenerateJuniorSchema()
	if err != nil {
		return "", "", err
	}
	ss, err := GenerateSeniorSchema()
	if err != nil {
		return "", "", err
	}
	junior, err = renderSystem(JuniorSystemPrompt, string(js))
	if err != nil {
		return "", "", err
	}
	senior, err = renderSystem(SeniorSystemPrompt, string(ss))
	if err != nil {
		return "", "", err
	}
	return junior, senior, nil
}

func renderSystem(tmpl, schema string) (string, error) {
	t, err := template.New("system").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse system prompt: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Schema string }{schema}); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}
