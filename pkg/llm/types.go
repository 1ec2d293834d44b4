// Package llm is the model transport for the two answer-engine roles: the
// junior planner/drafter and the senior auditor.
package llm

import "context"

// Scores are reliability scores in [0,1].
type Scores struct {
	Evidence  float64 `json:"evidence"`
	Reasoning float64 `json:"reasoning"`
	Coverage  float64 `json:"coverage"`
	Overall   float64 `json:"overall"`
}

// Uniform returns Scores with every component set to v.
func Uniform(v float64) Scores {
	return Scores{Evidence: v, Reasoning: v, Coverage: v, Overall: v}
}

// Plan is the junior's intent and requested probe ids.
type Plan struct {
	Intent        string   `json:"intent,omitempty"`
	ProbeRequests []string `json:"probe_requests,omitempty"`
}

// JuniorResponse is the decoded junior output. Absent fields are nil.
type JuniorResponse struct {
	Plan       Plan    `json:"plan"`
	Draft      *string `json:"draft,omitempty"`
	SelfScores *Scores `json:"self_scores,omitempty"`
	Refuse     bool    `json:"refuse,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// HasDraft reports whether a non-empty draft is present.
func (r JuniorResponse) HasDraft() bool {
	return r.Draft != nil && *r.Draft != ""
}

// Verdict is the senior's judgement of a draft.
type Verdict string

const (
	VerdictApprove         Verdict = "approve"
	VerdictFixAndAccept    Verdict = "fix_and_accept"
	VerdictNeedsMoreProbes Verdict = "needs_more_probes"
	VerdictRefuse          Verdict = "refuse"
)

// Terminal reports whether the verdict accepts an answer.
func (v Verdict) Terminal() bool {
	return v == VerdictApprove || v == VerdictFixAndAccept
}

// SeniorResponse is the decoded senior output. Absent text fields are nil;
// absent scores are zero.
type SeniorResponse struct {
	Verdict       Verdict  `json:"verdict"`
	Scores        Scores   `json:"scores"`
	Problems      []string `json:"problems,omitempty"`
	ProbeRequests []string `json:"probe_requests,omitempty"`
	FixedAnswer   *string  `json:"fixed_answer,omitempty"`
	// Text is a free-form answer that overrides both FixedAnswer and the draft.
	Text *string `json:"text,omitempty"`
}

// Role names a model role.
type Role string

const (
	RoleJunior Role = "junior"
	RoleSenior Role = "senior"
)

// Sink receives incremental tokens while a response streams.
type Sink interface {
	Token(role Role, chunk string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(role Role, chunk string)

// Token calls f.
func (f SinkFunc) Token(role Role, chunk string) { f(role, chunk) }

// Client exposes the two role-bound operations. Raw text is always returned
// alongside the decoded value, even when decoding finds nothing. A non-nil
// error means the transport failed. A nil sink disables streaming.
type Client interface {
	PlanOrDraft(ctx context.Context, prompt string, sink Sink) (JuniorResponse, string, error)
	Audit(ctx context.Context, prompt string, sink Sink) (SeniorResponse, string, error)
}
