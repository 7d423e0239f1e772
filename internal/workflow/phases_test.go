package workflow

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{Planning, Development, true},
		{Development, Testing, true},
		{Testing, Review, true},
		{Testing, Development, true},
		{Review, Development, true},

		// Rework from review always goes through development.
		{Review, Testing, false},

		{Planning, Testing, false},
		{Planning, Review, false},
		{Development, Review, false},
		{Development, Planning, false},
		{Testing, Planning, false},
		{Review, Planning, false},

		// Same-phase transitions never allowed.
		{Planning, Planning, false},
		{Development, Development, false},
		{Testing, Testing, false},
		{Review, Review, false},

		{"bogus", Development, false},
		{Planning, "bogus", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidPhase(t *testing.T) {
	for _, p := range []Phase{Planning, Development, Testing, Review} {
		if !ValidPhase(p) {
			t.Errorf("%s should be valid", p)
		}
	}
	for _, p := range []Phase{"", "done", "PLANNING"} {
		if ValidPhase(p) {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestAccessFor_MonotoneThroughHappyPath(t *testing.T) {
	tests := []struct {
		phase Phase
		want  Access
	}{
		{Planning, Access{}},
		{Development, Access{Plan: true, Code: true}},
		{Testing, Access{Plan: true, Code: true, Tests: true}},
		{Review, Access{Plan: true, Code: true, Tests: true, Review: true}},
		{"bogus", Access{}},
	}
	for _, tt := range tests {
		if got := AccessFor(tt.phase); got != tt.want {
			t.Errorf("AccessFor(%s) = %+v, want %+v", tt.phase, got, tt.want)
		}
	}

	// Each happy-path phase strictly widens the previous one.
	count := func(a Access) int {
		n := 0
		for _, b := range []bool{a.Plan, a.Code, a.Tests, a.Review} {
			if b {
				n++
			}
		}
		return n
	}
	path := []Phase{Planning, Development, Testing, Review}
	for i := 1; i < len(path); i++ {
		if count(AccessFor(path[i])) <= count(AccessFor(path[i-1])) {
			t.Errorf("access must widen from %s to %s", path[i-1], path[i])
		}
	}
}
