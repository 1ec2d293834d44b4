package replay

import (
	"fmt"
	"strings"
)

// Expect is the asserted outcome of a scenario.
type Expect struct {
	Refusal        *bool    `yaml:"refusal,omitempty"`
	Confidence     string   `yaml:"confidence,omitempty"`
	AnswerContains []string `yaml:"answer_contains,omitempty"`
	Iterations     *int     `yaml:"iterations,omitempty"`
	JuniorCalls    *int     `yaml:"junior_calls,omitempty"`
	SeniorCalls    *int     `yaml:"senior_calls,omitempty"`
	Problems       []string `yaml:"problems,omitempty"`
	Error          string   `yaml:"error,omitempty"`
}

// Outcome is what a replay run produced.
type Outcome struct {
	Refusal     bool
	Confidence  string
	Answer      string
	Iterations  int
	JuniorCalls int
	SeniorCalls int
	Problems    []string
	Err         error
}

// Check returns one message per mismatch; empty means the outcome matches.
func (e *Expect) Check(o Outcome) []string {
	if e == nil {
		return nil
	}
	var diffs []string
	if e.Error != "" {
		if o.Err == nil || !strings.Contains(o.Err.Error(), e.Error) {
			diffs = append(diffs, fmt.Sprintf("error = %v, want containing %q", o.Err, e.Error))
		}
		return diffs
	}
	if o.Err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", o.Err)}
	}
	if e.Refusal != nil && *e.Refusal != o.Refusal {
		diffs = append(diffs, fmt.Sprintf("refusal = %v, want %v", o.Refusal, *e.Refusal))
	}
	if e.Confidence != "" && !strings.EqualFold(e.Confidence, o.Confidence) {
		diffs = append(diffs, fmt.Sprintf("confidence = %s, want %s", o.Confidence, e.Confidence))
	}
	for _, s := range e.AnswerContains {
		if !strings.Contains(o.Answer, s) {
			diffs = append(diffs, fmt.Sprintf("answer does not contain %q", s))
		}
	}
	if e.Iterations != nil && *e.Iterations != o.Iterations {
		diffs = append(diffs, fmt.Sprintf("iterations = %d, want %d", o.Iterations, *e.Iterations))
	}
	if e.JuniorCalls != nil && *e.JuniorCalls != o.JuniorCalls {
		diffs = append(diffs, fmt.Sprintf("junior calls = %d, want %d", o.JuniorCalls, *e.JuniorCalls))
	}
	if e.SeniorCalls != nil && *e.SeniorCalls != o.SeniorCalls {
		diffs = append(diffs, fmt.Sprintf("senior calls = %d, want %d", o.SeniorCalls, *e.SeniorCalls))
	}
	for _, p := range e.Problems {
		found := false
		for _, got := range o.Problems {
			if strings.Contains(got, p) {
				found = true
				break
			}
		}
		if !found {
			diffs = append(diffs, fmt.Sprintf("problems %v missing %q", o.Problems, p))
		}
	}
	return diffs
}
