package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/faas"
)

// FileCache persists function configuration between experiment sessions as
// one JSON file per function, so reconfigurations survive harness restarts.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) UpdateFunction(function *faas.Function) error {
	serialized, err := json.MarshalIndent(function, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(c.dir, function.Name+".json")
	log.Debugf("Caching function %s at %s", function.Name, path)

	return os.WriteFile(path, serialized, 0644)
}

// Function loads a cached function configuration, if present.
func (c *FileCache) Function(name string) (*faas.Function, error) {
	raw, err := os.ReadFile(filepath.Join(c.dir, name+".json"))
	if err != nil {
		return nil, err
	}

	var function faas.Function
	if err := json.Unmarshal(raw, &function); err != nil {
		return nil, fmt.Errorf("parsing cached function %s: %w", name, err)
	}
	return &function, nil
}
