package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth-easl/perfcost/pkg/faas"
)

// scriptedTrigger replays a fixed sequence of outcomes-or-errors. Batches
// consume entries concurrently, so the sequence order carries no meaning
// within one batch.
type scriptedTrigger struct {
	mutex       sync.Mutex
	script      []scriptedEntry
	invocations int
}

type scriptedEntry struct {
	outcome *faas.InvocationOutcome
	err     error
}

func (t *scriptedTrigger) SyncInvoke(payload map[string]interface{}) (*faas.InvocationOutcome, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.invocations++
	if len(t.script) == 0 {
		return nil, errors.New("script exhausted")
	}
	next := t.script[0]
	t.script = t.script[1:]
	return next.outcome, next.err
}

type fakeDeployment struct {
	trigger           faas.Trigger
	memoryUpdates     []int
	coldStartCounters []int
	providerLatency   float64
}

func (d *fakeDeployment) GetFunction(benchmark string) (*faas.Function, error) {
	return &faas.Function{Name: benchmark, Endpoint: "http://fake"}, nil
}

func (d *fakeDeployment) UpdateFunction(function *faas.Function, benchmark string) error {
	d.memoryUpdates = append(d.memoryUpdates, function.MemoryMB)
	return nil
}

func (d *fakeDeployment) CreateTrigger(function *faas.Function) (faas.Trigger, error) {
	if d.trigger != nil {
		return d.trigger, nil
	}
	return &scriptedTrigger{}, nil
}

func (d *fakeDeployment) EnforceColdStart(functions []*faas.Function, counter int) error {
	d.coldStartCounters = append(d.coldStartCounters, counter)
	return nil
}

func (d *fakeDeployment) DownloadMetrics(function string, start, end time.Time,
	invocations map[string]*faas.InvocationOutcome) error {
	for _, invocation := range invocations {
		invocation.LatencyProviderMs = d.providerLatency
	}
	return nil
}

func coldOutcome(id string, latencyMs float64) scriptedEntry {
	return scriptedEntry{outcome: &faas.InvocationOutcome{
		RequestID:       id,
		LatencyClientMs: latencyMs,
		IsColdStart:     true,
	}}
}

func warmOutcome(id string, latencyMs float64) scriptedEntry {
	return scriptedEntry{outcome: &faas.InvocationOutcome{
		RequestID:       id,
		LatencyClientMs: latencyMs,
		IsColdStart:     false,
	}}
}

func newTestDriver(t *testing.T, trig *scriptedTrigger, dep *fakeDeployment) (*RunDriver, string) {
	t.Helper()

	outDir := t.TempDir()
	function := &faas.Function{Name: "bench", Endpoint: "http://fake", MemoryMB: 128}
	driver := NewRunDriver(dep, function, trig,
		map[string]interface{}{"size": "test"}, outDir, NewColdStartState(1))
	return driver, outDir
}

func TestRunSingleBatchAllValid(t *testing.T) {
	trig := &scriptedTrigger{script: []scriptedEntry{
		coldOutcome("a", 100), coldOutcome("b", 110), coldOutcome("c", 120),
		coldOutcome("d", 130), coldOutcome("e", 140),
	}}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	err := driver.Run(RunConfig{RunType: Cold, Repetitions: 5, Concurrency: 5})
	require.NoError(t, err)

	assert.Equal(t, 5, trig.invocations)
	assert.Len(t, dep.coldStartCounters, 1)

	document, err := ReadDocument(filepath.Join(outDir, "cold_results.json"))
	require.NoError(t, err)
	assert.Equal(t, KindRaw, document.Kind)
	assert.Equal(t, 5, document.Statistics.SamplesGenerated)
	assert.Equal(t, 0, document.Statistics.IncorrectCount)
	assert.Equal(t, 0, document.Statistics.FailuresCount)
	assert.Len(t, document.Result.InvocationsOf("bench"), 5)
}

func TestRunRetriesUntilTarget(t *testing.T) {
	trig := &scriptedTrigger{script: []scriptedEntry{
		// batch 1: one valid, one mislabeled
		coldOutcome("a", 100), warmOutcome("b", 50),
		// batch 2: both valid
		coldOutcome("c", 110), coldOutcome("d", 120),
	}}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	err := driver.Run(RunConfig{RunType: Cold, Repetitions: 3, Concurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, trig.invocations)
	assert.Len(t, dep.coldStartCounters, 2)
	// the counter advances between batches
	assert.Equal(t, dep.coldStartCounters[0]+1, dep.coldStartCounters[1])

	document, err := ReadDocument(filepath.Join(outDir, "cold_results.json"))
	require.NoError(t, err)
	assert.Equal(t, 3, document.Statistics.SamplesGenerated)
	assert.Equal(t, 1, document.Statistics.IncorrectCount)
	assert.Len(t, document.Statistics.Incorrect, 1)
	assert.Equal(t, "b", document.Statistics.Incorrect[0].RequestID)
	assert.Len(t, document.Result.InvocationsOf("bench"), 3)
}

func TestRunOvershootKeepsSeriesAtTarget(t *testing.T) {
	trig := &scriptedTrigger{script: []scriptedEntry{
		coldOutcome("a", 100), coldOutcome("b", 110),
		coldOutcome("c", 120), coldOutcome("d", 130),
	}}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	// 2 does not divide 3: the second batch returns one more valid sample
	// than needed
	err := driver.Run(RunConfig{RunType: Cold, Repetitions: 3, Concurrency: 2})
	require.NoError(t, err)

	document, err := ReadDocument(filepath.Join(outDir, "cold_results.json"))
	require.NoError(t, err)
	assert.Equal(t, 3, document.Statistics.SamplesGenerated)
	// the surplus outcome is still recorded, just not measured
	assert.Len(t, document.Result.InvocationsOf("bench"), 4)
}

func TestRunAccountsTransientErrors(t *testing.T) {
	trig := &scriptedTrigger{script: []scriptedEntry{
		coldOutcome("a", 100), {err: errors.New("connection reset")},
		coldOutcome("b", 105), coldOutcome("c", 115),
	}}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	err := driver.Run(RunConfig{RunType: Cold, Repetitions: 3, Concurrency: 2})
	require.NoError(t, err)

	document, err := ReadDocument(filepath.Join(outDir, "cold_results.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, document.Statistics.FailuresCount)
	require.Len(t, document.Statistics.Failures, 1)
	assert.Contains(t, document.Statistics.Failures[0], "connection reset")
	assert.Equal(t, 3, document.Statistics.SamplesGenerated)
}

func TestRunWarmSkipsColdStartEnforcement(t *testing.T) {
	trig := &scriptedTrigger{script: []scriptedEntry{
		warmOutcome("a", 10), warmOutcome("b", 11),
	}}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	err := driver.Run(RunConfig{RunType: Warm, Repetitions: 2, Concurrency: 2, Suffix: "512"})
	require.NoError(t, err)

	assert.Empty(t, dep.coldStartCounters)

	_, err = os.Stat(filepath.Join(outDir, "warm_results_512.json"))
	assert.NoError(t, err)
}

func TestRunMaxBatchesExhausted(t *testing.T) {
	// a backend that never produces a correctly labeled sample
	script := make([]scriptedEntry, 10)
	for i := range script {
		script[i] = warmOutcome(fmt.Sprintf("w%d", i), 10)
	}
	trig := &scriptedTrigger{script: script}
	dep := &fakeDeployment{}
	driver, outDir := newTestDriver(t, trig, dep)

	err := driver.Run(RunConfig{RunType: Cold, Repetitions: 5, Concurrency: 2, MaxBatches: 3})

	var incomplete *RunIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 0, incomplete.Gathered)
	assert.Equal(t, 5, incomplete.Target)
	assert.Equal(t, 3, incomplete.Batches)
	assert.Equal(t, 6, trig.invocations)

	// no partial result file
	_, err = os.Stat(filepath.Join(outDir, "cold_results.json"))
	assert.True(t, os.IsNotExist(err))
}
