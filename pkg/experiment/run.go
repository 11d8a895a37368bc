package experiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/faas"
	"github.com/eth-easl/perfcost/pkg/stats"
)

// RunConfig is immutable for the duration of one run.
type RunConfig struct {
	RunType     RunType
	Repetitions int
	Concurrency int
	// Suffix distinguishes output files across memory sizes; empty when no
	// memory sweep is configured.
	Suffix string
	// MaxBatches bounds the accumulate-until-target loop; 0 means no bound,
	// matching the original harness's infinite patience with backends that
	// are slow to produce correctly labeled samples.
	MaxBatches int
}

// RunIncompleteError reports a run that exhausted its batch budget before
// gathering the target number of valid samples.
type RunIncompleteError struct {
	RunType  RunType
	Gathered int
	Target   int
	Batches  int
}

func (e *RunIncompleteError) Error() string {
	return fmt.Sprintf("%s run incomplete: %d/%d valid samples after %d batches",
		e.RunType, e.Gathered, e.Target, e.Batches)
}

// RunDriver executes the accumulate-until-target loop for one
// (run type, memory configuration) pair.
type RunDriver struct {
	deployment faas.Deployment
	function   *faas.Function
	trigger    faas.Trigger
	payload    map[string]interface{}
	outDir     string
	coldStart  *ColdStartState
}

func NewRunDriver(deployment faas.Deployment, function *faas.Function, trigger faas.Trigger,
	payload map[string]interface{}, outDir string, coldStart *ColdStartState) *RunDriver {
	return &RunDriver{
		deployment: deployment,
		function:   function,
		trigger:    trigger,
		payload:    payload,
		outDir:     outDir,
		coldStart:  coldStart,
	}
}

// Run gathers exactly cfg.Repetitions correctly labeled samples, computes
// their statistics, and persists the run document. Transient invocation
// errors and mislabeled samples are counted and retried around, never
// aborted on.
func (d *RunDriver) Run(cfg RunConfig) error {
	// A stale counter value could leave the backend's warm pool intact
	// from a previous run, so every run starts from a fresh draw.
	d.coldStart.Randomize()

	log.Infof("Begin %s experiments", cfg.RunType)

	result := NewResult()
	result.Begin()

	bucket := &SampleBucket{}
	batcher := NewBatcher(d.trigger, cfg.Concurrency)
	batches := 0

	for bucket.CountGathered < cfg.Repetitions {
		if cfg.MaxBatches > 0 && batches >= cfg.MaxBatches {
			return &RunIncompleteError{
				RunType:  cfg.RunType,
				Gathered: bucket.CountGathered,
				Target:   cfg.Repetitions,
				Batches:  batches,
			}
		}

		// Forcing cold starts manipulates shared instance state, so it
		// happens once per batch, before any invocation is issued.
		if cfg.RunType == Cold {
			if err := d.deployment.EnforceColdStart([]*faas.Function{d.function}, d.coldStart.Next()); err != nil {
				return fmt.Errorf("enforcing cold start: %w", err)
			}
		}

		batch := batcher.Invoke(d.payload)
		batches++

		for _, entry := range batch {
			if entry.Err != nil {
				bucket.ErrorMessages = append(bucket.ErrorMessages, entry.Err.Error())
				bucket.ErrorCount++
				continue
			}

			outcome := entry.Outcome
			if Classify(outcome, cfg.RunType) == Incorrect {
				log.Infof("Invocation %s cold: %t on experiment %s!",
					outcome.RequestID, outcome.IsColdStart, cfg.RunType)
				bucket.IncorrectSamples = append(bucket.IncorrectSamples, outcome)
				bucket.IncorrectCount++
				continue
			}

			if err := result.AddInvocation(d.function, outcome); err != nil {
				return err
			}
			// A batch can overshoot the target when the concurrency does
			// not divide the repetition count; the measured series stays
			// capped at exactly the target.
			if bucket.CountGathered < cfg.Repetitions {
				bucket.ValidSamples = append(bucket.ValidSamples, outcome.LatencyClientMs/1000.0)
				bucket.CountGathered++
			}
		}

		log.Infof("Processed %d samples out of %d, %d errors",
			bucket.CountGathered, cfg.Repetitions, bucket.ErrorCount)
	}

	result.End()
	logStatistics(bucket.ValidSamples)

	document := &RunDocument{
		Kind:     KindRaw,
		RunType:  cfg.RunType.String(),
		MemoryMB: d.function.MemoryMB,
		Result:   result,
		Statistics: &StatisticsBlock{
			SamplesGenerated: bucket.CountGathered,
			Failures:         bucket.ErrorMessages,
			FailuresCount:    bucket.ErrorCount,
			Incorrect:        bucket.IncorrectSamples,
			IncorrectCount:   bucket.IncorrectCount,
		},
	}

	return WriteDocument(document, filepath.Join(d.outDir, ResultFileName(cfg.RunType, cfg.Suffix)))
}

// logStatistics derives descriptive statistics and confidence intervals
// over the valid-sample latency series, in seconds.
func logStatistics(samples []float64) {
	mean, median, stddev, cv, err := stats.BasicStats(samples)
	if err != nil {
		log.Errorf("Failed to compute statistics: %s", err)
		return
	}
	log.Infof("Mean %f, median %f, std %f, CV %f", mean, median, stddev, cv)

	for _, alpha := range []float64{0.95, 0.99} {
		ci, err := stats.ParametricCI(alpha, samples)
		if err != nil {
			log.Errorf("Failed to compute parametric CI: %s", err)
			continue
		}
		log.Infof("Parametric CI (Student's t-distribution) %.2f from %f to %f, within %f%% of mean",
			alpha, ci.Lower, ci.Upper, ci.HalfWidthPct(mean))

		// The rank-based interval has no resolution on small series.
		if len(samples) >= stats.NonParametricMinSamples {
			ci, err = stats.NonParametricCI(alpha, samples)
			if err != nil {
				log.Errorf("Failed to compute non-parametric CI: %s", err)
				continue
			}
			log.Infof("Non-parametric CI %.2f from %f to %f, within %f%% of median",
				alpha, ci.Lower, ci.Upper, ci.HalfWidthPct(median))
		}
	}
}

// WriteDocument persists a run document as a single JSON file.
func WriteDocument(document *RunDocument, path string) error {
	serialized, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing run document: %w", err)
	}
	return os.WriteFile(path, serialized, 0644)
}

// ReadDocument loads a persisted run document.
func ReadDocument(path string) (*RunDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var document RunDocument
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("parsing run document %s: %w", path, err)
	}
	if document.Result == nil {
		return nil, errors.New("run document has no experiment result")
	}
	return &document, nil
}
