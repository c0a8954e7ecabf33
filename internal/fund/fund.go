package fund

import "github.com/ethereum/go-ethereum/common"

// Fund tracks the initialization progress of a created fund.
type Fund struct {
	Name    string
	Address common.Address

	plan        Plan
	completed   int
	operational bool
}

// CurrentPhase is the index of the last completed phase, or 0 for a fresh fund.
// A fresh fund and one with only phase 0 done both report 0; use
// PhasesCompleted to tell them apart.
func (f *Fund) CurrentPhase() int {
	if f.completed == 0 {
		return 0
	}
	return f.completed - 1
}

// PhasesCompleted counts the initialization phases that have succeeded.
func (f *Fund) PhasesCompleted() int {
	return f.completed
}

// Operational reports whether the terminal action succeeded. Only an
// operational fund is usable.
func (f *Fund) Operational() bool {
	return f.operational
}

// Plan returns the plan the fund was created from.
func (f *Fund) Plan() Plan {
	return f.plan
}
