package experiment

import "math/rand"

// ColdStartState is the backend-wide cold-start counter, owned by the sweep
// and threaded explicitly through each run. Changing the counter perturbs
// the backend's environment so that warm instances are recycled; the value
// must differ between runs or a still-warm pool could survive and defeat a
// forced-cold measurement.
type ColdStartState struct {
	counter int
	rng     *rand.Rand
}

func NewColdStartState(seed int64) *ColdStartState {
	return &ColdStartState{rng: rand.New(rand.NewSource(seed))}
}

// Randomize resets the counter to a fresh value drawn uniformly from
// [0, 100). Called once at the start of every run.
func (s *ColdStartState) Randomize() int {
	s.counter = s.rng.Intn(100)
	return s.counter
}

// Next advances the counter before a forced-cold batch and returns the new
// value.
func (s *ColdStartState) Next() int {
	s.counter++
	return s.counter
}

func (s *ColdStartState) Counter() int {
	return s.counter
}
