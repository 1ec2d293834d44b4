package engine

import (
	"fmt"
	"time"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

// AuditScores are the scores attached to a final answer.
type AuditScores = llm.Scores

// ConfidenceLevel is the coarse display bucket for an overall score.
type ConfidenceLevel string

const (
	Green  ConfidenceLevel = "green"
	Yellow ConfidenceLevel = "yellow"
	Red    ConfidenceLevel = "red"
)

// Thresholds are the minimum overall scores for Green and Yellow.
type Thresholds struct {
	Green  float64 `json:"green"`
	Yellow float64 `json:"yellow"`
}

// DefaultThresholds is the standard score table.
var DefaultThresholds = Thresholds{Green: 0.90, Yellow: 0.70}

// Level buckets score. Higher scores never map to a lower level.
func (t Thresholds) Level(score float64) ConfidenceLevel {
	switch {
	case score >= t.Green:
		return Green
	case score >= t.Yellow:
		return Yellow
	default:
		return Red
	}
}

// Validate checks 0 <= Yellow <= Green <= 1.
func (t Thresholds) Validate() error {
	if t.Yellow < 0 || t.Green > 1 || t.Yellow > t.Green {
		return fmt.Errorf("invalid thresholds: yellow=%.2f green=%.2f", t.Yellow, t.Green)
	}
	return nil
}

// Source says which path produced an answer.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceFastPath   Source = "fast_path"
	SourceLoop       Source = "loop"
)

// RefusalKind says why an answer was refused.
type RefusalKind string

const (
	RefusalUnsupported RefusalKind = "unsupported"
	RefusalJunior      RefusalKind = "junior_refused"
	RefusalSenior      RefusalKind = "senior_refused"
	RefusalNoEvidence  RefusalKind = "no_evidence"
	RefusalNoDraft     RefusalKind = "no_draft"
	RefusalZeroScore   RefusalKind = "zero_score"
)

// Problem strings attached to answers.
const (
	ProblemMaxLoops   = "Reached maximum verification loops"
	ProblemNoEvidence = "No evidence could be gathered"
	ProblemUnaudited  = "Answered from a single probe without audit"
)

// LowConfidenceDisclaimer is appended to partial answers returned after the
// loop budget ran out.
const LowConfidenceDisclaimer = "\n\n(Low confidence: this answer could not be fully verified against the collected evidence.)"

// FinalAnswer is the terminal outcome for one question.
type FinalAnswer struct {
	RunID          string            `json:"run_id"`
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	IsRefusal      bool              `json:"is_refusal"`
	Refusal        RefusalKind       `json:"refusal,omitempty"`
	Citations      []probe.Evidence  `json:"citations"`
	Scores         AuditScores       `json:"scores"`
	Confidence     ConfidenceLevel   `json:"confidence"`
	Verdict        llm.Verdict       `json:"verdict,omitempty"`
	Problems       []string          `json:"problems"`
	LoopIterations int               `json:"loop_iterations"`
	Source         Source            `json:"source"`
	Duration       time.Duration     `json:"duration"`
	Debug          *trace.DebugTrace `json:"debug,omitempty"`
}

// RefusalText formats the user-facing refusal message.
func RefusalText(reason string) string {
	return "I cannot answer this question.\n\nReason: " + reason
}
