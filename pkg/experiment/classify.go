package experiment

import "github.com/eth-easl/perfcost/pkg/faas"

// Verdict is the classification of one completed invocation against the
// intended run type.
type Verdict int

const (
	// Valid counts toward the repetition target.
	Valid Verdict = iota
	// Incorrect means the backend did not honor the intended execution
	// mode: the sample is recorded but never measured.
	Incorrect
)

// Classify decides whether an outcome's cold-start label matches the run
// type being measured. Burst and sequential impose no cold/warm constraint.
func Classify(outcome *faas.InvocationOutcome, runType RunType) Verdict {
	if runType == Cold && !outcome.IsColdStart {
		return Incorrect
	}
	if runType == Warm && outcome.IsColdStart {
		return Incorrect
	}
	return Valid
}
