package experiment

import (
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/config"
	"github.com/eth-easl/perfcost/pkg/faas"
)

// Sweep iterates over the configured memory sizes and run types,
// reconfiguring the deployed function and running the run driver for each
// combination.
type Sweep struct {
	cfg        *config.PerfCostConfiguration
	deployment faas.Deployment
	cache      faas.Cache
	benchmark  faas.Benchmark

	function  *faas.Function
	trigger   faas.Trigger
	payload   map[string]interface{}
	outDir    string
	coldStart *ColdStartState
}

func NewSweep(cfg *config.PerfCostConfiguration, deployment faas.Deployment,
	cache faas.Cache, benchmark faas.Benchmark, seed int64) *Sweep {
	return &Sweep{
		cfg:        cfg,
		deployment: deployment,
		cache:      cache,
		benchmark:  benchmark,
		outDir:     cfg.OutputDir,
		coldStart:  NewColdStartState(seed),
	}
}

// Prepare resolves the deployed function, its trigger, and the staged
// benchmark input.
func (s *Sweep) Prepare() error {
	function, err := s.deployment.GetFunction(s.cfg.Benchmark)
	if err != nil {
		return fmt.Errorf("resolving function for benchmark %s: %w", s.cfg.Benchmark, err)
	}
	s.function = function

	trigger, err := s.deployment.CreateTrigger(function)
	if err != nil {
		return fmt.Errorf("creating trigger for %s: %w", function.Name, err)
	}
	s.trigger = trigger

	payload, err := s.benchmark.PrepareInput(s.cfg.Storage, s.cfg.InputSize)
	if err != nil {
		return fmt.Errorf("preparing benchmark input: %w", err)
	}
	s.payload = payload

	return nil
}

// Run executes the full sweep. Unknown experiment types are configuration
// errors and abort immediately; an incomplete run is logged and the sweep
// moves on to the next combination.
func (s *Sweep) Run() error {
	if len(s.cfg.MemorySizes) == 0 {
		log.Info("Begin experiment")
		return s.runConfiguration("")
	}

	for _, memory := range s.cfg.MemorySizes {
		log.Infof("Begin experiment on memory size %d", memory)

		s.function.MemoryMB = memory
		if err := s.deployment.UpdateFunction(s.function, s.cfg.Benchmark); err != nil {
			return fmt.Errorf("updating function memory to %d: %w", memory, err)
		}
		if err := s.cache.UpdateFunction(s.function); err != nil {
			return fmt.Errorf("updating function cache: %w", err)
		}

		if err := s.runConfiguration(strconv.Itoa(memory)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweep) runConfiguration(suffix string) error {
	driver := NewRunDriver(s.deployment, s.function, s.trigger, s.payload, s.outDir, s.coldStart)

	for _, name := range s.cfg.Experiments {
		runType, err := ParseRunType(name)
		if err != nil {
			return err
		}

		if !runType.Implemented() {
			log.Warnf("Experiment type %s is not implemented; skipping, no results will be produced", runType)
			continue
		}

		err = driver.Run(RunConfig{
			RunType:     runType,
			Repetitions: s.cfg.Repetitions,
			Concurrency: s.cfg.ConcurrentInvocations,
			Suffix:      suffix,
			MaxBatches:  s.cfg.MaxBatches,
		})

		var incomplete *RunIncompleteError
		if errors.As(err, &incomplete) {
			log.Errorf("Run did not reach its sample target: %s", incomplete)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
