package faas

import "time"

// Function is one deployed benchmark function on the measured backend.
type Function struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	MemoryMB int    `json:"memory"`
}

// InvocationOutcome captures one completed remote invocation. Produced
// exactly once by a Trigger and never mutated afterwards, except for the
// provider-side fields back-filled offline by the post-processor.
type InvocationOutcome struct {
	RequestID string `json:"request_id"`

	LatencyClientMs   float64 `json:"latency_client_ms"`
	LatencyProviderMs float64 `json:"latency_provider_ms"`
	HTTPSetupMs       float64 `json:"http_setup_ms"`
	ExecTimeMs        float64 `json:"exec_time_ms"`

	IsColdStart bool `json:"is_cold_start"`

	RawProviderPayload map[string]interface{} `json:"output,omitempty"`
}

// Trigger issues one blocking, synchronous invocation against the deployed
// function and reports its outcome.
type Trigger interface {
	SyncInvoke(payload map[string]interface{}) (*InvocationOutcome, error)
}

// Deployment abstracts the compute backend hosting the benchmark function.
// EnforceColdStart receives the current value of the cold-start counter,
// which the caller owns and advances; the backend uses it to invalidate the
// warm instance pool before a forced-cold batch.
type Deployment interface {
	GetFunction(benchmark string) (*Function, error)
	UpdateFunction(function *Function, benchmark string) error
	CreateTrigger(function *Function) (Trigger, error)
	EnforceColdStart(functions []*Function, counter int) error
	DownloadMetrics(function string, start, end time.Time, invocations map[string]*InvocationOutcome) error
}

// Cache propagates function configuration changes to the shared cache used
// across experiment runs.
type Cache interface {
	UpdateFunction(function *Function) error
}

// Benchmark stages the benchmark input payload.
type Benchmark interface {
	PrepareInput(storage string, size string) (map[string]interface{}, error)
}
