package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JuniorOutput documents the JSON object the junior is asked to produce.
type JuniorOutput struct {
	Intent        string              `json:"intent" jsonschema:"required,description=One-line restatement of what the user wants to know"`
	ProbeRequests []ProbeRequestShape `json:"probe_requests,omitempty" jsonschema:"description=Catalog probe ids to run next; empty when the evidence is sufficient"`
	DraftAnswer   *DraftShape         `json:"draft_answer,omitempty" jsonschema:"description=Answer grounded only in the evidence; omit until evidence exists"`
	Scores        *ScoresShape        `json:"scores,omitempty"`
	Refuse        bool                `json:"refuse,omitempty" jsonschema:"description=True when the question cannot be answered from system probes"`
	RefuseReason  string              `json:"refuse_reason,omitempty"`
}

// SeniorOutput documents the JSON object the senior is asked to produce.
type SeniorOutput struct {
	Verdict       string              `json:"verdict" jsonschema:"required,enum=approve,enum=fix_and_accept,enum=needs_more_probes,enum=refuse"`
	Scores        ScoresShape         `json:"scores" jsonschema:"required"`
	Problems      []string            `json:"problems,omitempty"`
	ProbeRequests []ProbeRequestShape `json:"probe_requests,omitempty" jsonschema:"description=Only with needs_more_probes"`
	FixedAnswer   string              `json:"fixed_answer,omitempty" jsonschema:"description=Corrected answer for fix_and_accept"`
	Text          string              `json:"text,omitempty" jsonschema:"description=Complete replacement answer; takes precedence over fixed_answer"`
}

// ProbeRequestShape is one requested probe.
type ProbeRequestShape struct {
	ProbeID string `json:"probe_id" jsonschema:"required"`
	Reason  string `json:"reason,omitempty"`
}

// DraftShape is a drafted answer with the probe ids it cites.
type DraftShape struct {
	Text      string   `json:"text" jsonschema:"required"`
	Citations []string `json:"citations,omitempty"`
}

// ScoresShape is the score object on a 0-1 scale.
type ScoresShape struct {
	Evidence  float64 `json:"evidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning float64 `json:"reasoning" jsonschema:"minimum=0,maximum=1"`
	Coverage  float64 `json:"coverage" jsonschema:"minimum=0,maximum=1"`
	Overall   float64 `json:"overall" jsonschema:"minimum=0,maximum=1"`
}

// GenerateJuniorSchema returns the JSON Schema of JuniorOutput.
func GenerateJuniorSchema() ([]byte, error) {
	return generate(&JuniorOutput{}, "junior-v1.json", "Junior planner response")
}

// GenerateSeniorSchema returns the JSON Schema of SeniorOutput.
func GenerateSeniorSchema() ([]byte, error) {
	return generate(&SeniorOutput{}, "senior-v1.json", "Senior auditor response")
}

func generate(v any, id, title string) ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true

	s := r.Reflect(v)
	s.ID = jsonschema.ID("https://github.com/jjgarcianorway/anna-assistant-sub000/schemas/" + id)
	s.Title = title

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", id, err)
	}
	return data, nil
}
