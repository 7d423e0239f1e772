// Package workflow drives tasks through the development phase machine:
// planning, development, testing, review. Phase history is append-only;
// the latest row is the task's current phase.
package workflow

// Phase is a stage in the task lifecycle.
type Phase string

const (
	Planning    Phase = "planning"
	Development Phase = "development"
	Testing     Phase = "testing"
	Review      Phase = "review"
)

// transitions is the directed phase graph. Review never jumps straight
// back to testing: rework always passes through development first.
var transitions = map[Phase][]Phase{
	Planning:    {Development},
	Development: {Testing},
	Testing:     {Review, Development},
	Review:      {Development},
}

// ValidPhase reports whether p names a known phase.
func ValidPhase(p Phase) bool {
	_, ok := transitions[p]
	return ok
}

// CanTransition reports whether from→to is an allowed edge. Same-phase
// transitions are always rejected.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Access lists what a caller in a given phase may act on. The flags grow
// monotonically through the happy path.
type Access struct {
	Plan   bool `json:"plan"`
	Code   bool `json:"code"`
	Tests  bool `json:"tests"`
	Review bool `json:"review"`
}

// AccessFor returns the capability row for a phase. Unknown phases get no
// capabilities.
func AccessFor(p Phase) Access {
	switch p {
	case Development:
		return Access{Plan: true, Code: true}
	case Testing:
		return Access{Plan: true, Code: true, Tests: true}
	case Review:
		return Access{Plan: true, Code: true, Tests: true, Review: true}
	default:
		return Access{}
	}
}
