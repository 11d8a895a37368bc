package experiment

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/eth-easl/perfcost/pkg/faas"
)

// ErrResultSealed is returned when an invocation is added to a result after
// End() has been called.
var ErrResultSealed = errors.New("experiment result is sealed")

// Result aggregates the invocations of one run, keyed by function name and
// request id. Begin() opens the measurement window, End() closes it and
// seals the result against further additions.
type Result struct {
	BeginTime   int64                                        `json:"begin"`
	EndTime     int64                                        `json:"end"`
	Invocations map[string]map[string]*faas.InvocationOutcome `json:"invocations"`

	sealed bool
}

func NewResult() *Result {
	return &Result{
		Invocations: map[string]map[string]*faas.InvocationOutcome{},
	}
}

func (r *Result) Begin() {
	r.BeginTime = time.Now().Unix()
}

func (r *Result) End() {
	r.EndTime = time.Now().Unix()
	r.sealed = true
}

func (r *Result) AddInvocation(function *faas.Function, outcome *faas.InvocationOutcome) error {
	if r.sealed {
		return ErrResultSealed
	}

	perFunction, ok := r.Invocations[function.Name]
	if !ok {
		perFunction = map[string]*faas.InvocationOutcome{}
		r.Invocations[function.Name] = perFunction
	}
	perFunction[outcome.RequestID] = outcome

	return nil
}

// Functions returns the function names in deterministic order.
func (r *Result) Functions() []string {
	names := make([]string, 0, len(r.Invocations))
	for name := range r.Invocations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Result) InvocationsOf(function string) map[string]*faas.InvocationOutcome {
	return r.Invocations[function]
}

// Times returns the measurement window spanning the first and last
// invocation of the run.
func (r *Result) Times() (time.Time, time.Time) {
	return time.Unix(r.BeginTime, 0), time.Unix(r.EndTime, 0)
}

// SampleBucket is the accumulating state of one run's valid/invalid
// partition. Only the run driver's control loop mutates it.
type SampleBucket struct {
	ValidSamples     []float64
	CountGathered    int
	IncorrectSamples []*faas.InvocationOutcome
	ErrorMessages    []string
	ErrorCount       int
	IncorrectCount   int
}

// StatisticsBlock is the summary appended to the serialized result.
type StatisticsBlock struct {
	SamplesGenerated int                       `json:"samples_generated"`
	Failures         []string                  `json:"failures"`
	FailuresCount    int                       `json:"failures_count"`
	Incorrect        []*faas.InvocationOutcome `json:"incorrect"`
	IncorrectCount   int                       `json:"incorrect_count"`
}

// Document kinds for persisted run results.
const (
	KindRaw       = "raw"
	KindProcessed = "processed"
)

// RunDocument is the persisted form of one run: the sealed result plus its
// statistics block, tagged with the run parameters so that later passes
// never have to re-derive them from file names.
type RunDocument struct {
	Kind       string           `json:"kind"`
	RunType    string           `json:"run_type"`
	MemoryMB   int              `json:"memory,omitempty"`
	Result     *Result          `json:"experiment"`
	Statistics *StatisticsBlock `json:"statistics"`
}

// ResultFileName yields the per-run output file name. With no memory
// suffix, the original harness always wrote cold_results.json no matter the
// run type; that quirk is preserved for downstream compatibility.
func ResultFileName(runType RunType, suffix string) string {
	if suffix == "" {
		return "cold_results.json"
	}
	return fmt.Sprintf("%s_results_%s.json", runType.String(), suffix)
}
