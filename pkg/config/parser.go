package config

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// PerfCostConfiguration drives one perf-cost experiment session.
type PerfCostConfiguration struct {
	Seed int64 `json:"seed"`

	Platform string `json:"platform"`
	Endpoint string `json:"endpoint"`

	Benchmark    string `json:"benchmark"`
	BenchmarkDir string `json:"benchmark-dir"`
	Storage      string `json:"storage"`
	InputSize    string `json:"input-size"`

	MemorySizes           []int    `json:"memory-sizes"`
	Repetitions           int      `json:"repetitions"`
	ConcurrentInvocations int      `json:"concurrent-invocations"`
	Experiments           []string `json:"experiments"`

	OutputDir  string `json:"output-dir"`
	CacheDir   string `json:"cache-dir"`
	MaxBatches int    `json:"max-batches"`

	EnableZipkinTracing bool `json:"zipkin-tracing"`
}

// Validate rejects configurations that cannot produce a well-defined run.
func (c *PerfCostConfiguration) Validate() error {
	if c.Benchmark == "" {
		return fmt.Errorf("no benchmark configured")
	}
	if c.Repetitions <= 0 {
		return fmt.Errorf("repetitions must be positive, got %d", c.Repetitions)
	}
	if c.ConcurrentInvocations <= 0 {
		return fmt.Errorf("concurrent-invocations must be positive, got %d", c.ConcurrentInvocations)
	}
	if len(c.Experiments) == 0 {
		return fmt.Errorf("no experiments configured")
	}
	return nil
}

func ReadConfigurationFile(path string) PerfCostConfiguration {
	byteValue, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	var config PerfCostConfiguration
	err = json.Unmarshal(byteValue, &config)
	if err != nil {
		log.Fatal(err)
	}

	return config
}
