package service

// FailurePolicy decides how an operation reports storage failures.
type FailurePolicy int

const (
	// FailVisible returns the error to the caller.
	FailVisible FailurePolicy = iota
	// FailSoft logs the error and returns an empty but well-formed result.
	FailSoft
)

func (p FailurePolicy) String() string {
	if p == FailSoft {
		return "fail-soft"
	}
	return "fail-visible"
}

// Per-operation failure policies. Listings stay available when the store
// misbehaves; mutations always tell the caller.
const (
	ListPolicy   = FailSoft
	UpdatePolicy = FailVisible
	DeletePolicy = FailVisible
)

// PopulationPolicy decides how many rows are generated to replace a deleted one.
type PopulationPolicy interface {
	Replacements() int
}

// MaintainPopulation replaces every delete with one freshly generated row,
// keeping the table size constant for demo deployments. The replacement is
// inserted even when the deleted id did not exist.
type MaintainPopulation struct{}

func (MaintainPopulation) Replacements() int { return 1 }

// NoReplacement makes deletes plain deletes.
type NoReplacement struct{}

func (NoReplacement) Replacements() int { return 0 }

// PopulationPolicyFor returns the policy selected by the maintain flag.
func PopulationPolicyFor(maintain bool) PopulationPolicy {
	if maintain {
		return MaintainPopulation{}
	}
	return NoReplacement{}
}
