// Package trace records what the answer engine sent to and received from
// the models. Nothing here is read back by the engine's control flow.
package trace

import "time"

// DebugIteration is one prompt/response exchange.
type DebugIteration struct {
	Iteration     int       `json:"iteration"`
	Role          string    `json:"role"`
	Prompt        string    `json:"prompt,omitempty"`
	RawResponse   string    `json:"raw_response,omitempty"`
	ParsedSummary string    `json:"parsed_summary,omitempty"`
	At            time.Time `json:"at"`
}

// DebugTrace is the append-only record of one question.
type DebugTrace struct {
	RunID      string           `json:"run_id"`
	Question   string           `json:"question"`
	Iterations []DebugIteration `json:"iterations"`
}

// New returns an empty trace.
func New(runID, question string) *DebugTrace {
	return &DebugTrace{RunID: runID, Question: question}
}

// Append adds an entry. Safe on a nil trace.
func (t *DebugTrace) Append(it DebugIteration) {
	if t == nil {
		return
	}
	if it.At.IsZero() {
		it.At = time.Now().UTC()
	}
	t.Iterations = append(t.Iterations, it)
}

// Len returns the number of recorded entries.
func (t *DebugTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Iterations)
}
