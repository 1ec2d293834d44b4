package engine

// LoopState tracks verification iterations for one question. Iteration only
// grows and never exceeds MaxIterations.
type LoopState struct {
	Iteration     int  `json:"iteration"`
	MaxIterations int  `json:"max_iterations"`
	Terminal      bool `json:"terminal"`
}

// NewLoopState returns a state allowing max iterations (at least one).
func NewLoopState(max int) *LoopState {
	if max < 1 {
		max = 1
	}
	return &LoopState{MaxIterations: max}
}

// Next advances to the next iteration. It returns false once the loop is
// terminal or the budget is spent.
func (s *LoopState) Next() bool {
	if s.Terminal || s.Iteration >= s.MaxIterations {
		return false
	}
	s.Iteration++
	return true
}

// Finish marks the loop terminal.
func (s *LoopState) Finish() { s.Terminal = true }

// Exhausted reports whether the budget ran out without a terminal outcome.
func (s *LoopState) Exhausted() bool {
	return !s.Terminal && s.Iteration >= s.MaxIterations
}
