package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// InputBenchmark stages the invocation payload for a named benchmark from
// an input template on disk, parameterized by storage location and input
// size class.
type InputBenchmark struct {
	name string
	dir  string
}

func New(name, dir string) *InputBenchmark {
	return &InputBenchmark{name: name, dir: dir}
}

func (b *InputBenchmark) PrepareInput(storage string, size string) (map[string]interface{}, error) {
	payload := map[string]interface{}{}

	templatePath := filepath.Join(b.dir, b.name, "input.json")
	raw, err := os.ReadFile(templatePath)
	switch {
	case os.IsNotExist(err):
		// benchmarks without a template get the bare parameters
	case err != nil:
		return nil, fmt.Errorf("reading input template %s: %w", templatePath, err)
	default:
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("parsing input template %s: %w", templatePath, err)
		}
	}

	payload["size"] = size
	if storage != "" {
		payload["bucket"] = storage
	}

	return payload, nil
}
