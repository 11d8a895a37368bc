package main

import (
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	tracer "github.com/ease-lab/vhive/utils/tracing/go"

	"github.com/eth-easl/perfcost/pkg/benchmark"
	"github.com/eth-easl/perfcost/pkg/cache"
	"github.com/eth-easl/perfcost/pkg/config"
	"github.com/eth-easl/perfcost/pkg/deployment"
	"github.com/eth-easl/perfcost/pkg/experiment"
	"github.com/eth-easl/perfcost/pkg/process"
)

const (
	zipkinAddr = "http://localhost:9411/api/v2/spans"
)

var (
	configPath     = flag.String("config", "cmd/perfcost/config.json", "Path to experiment configuration file")
	verbosity      = flag.String("verbosity", "info", "Logging verbosity - choose from [info, debug, trace]")
	processResults = flag.Bool("process", false, "Post-process persisted results instead of running experiments")
	extendInterval = flag.Int("extend-interval", 0, "Extension of the metrics query window, in minutes, on both ends")
)

func init() {
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.StampMilli,
		FullTimestamp:   true,
	})
	log.SetOutput(os.Stdout)

	switch *verbosity {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	cfg := config.ReadConfigurationFile(*configPath)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if cfg.EnableZipkinTracing {
		shutdown, err := tracer.InitBasicTracer(zipkinAddr, "perfcost")
		if err != nil {
			log.Print(err)
		}

		defer shutdown()
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatal(err)
	}

	deploymentClient := deployment.CreateDeployment(&cfg)

	if *processResults {
		processor := process.NewProcessor(deploymentClient, cfg.OutputDir, *extendInterval)
		if err := processor.Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cacheClient, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		log.Fatal(err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sweep := experiment.NewSweep(&cfg, deploymentClient,
		cacheClient, benchmark.New(cfg.Benchmark, cfg.BenchmarkDir), seed)

	if err := sweep.Prepare(); err != nil {
		log.Fatal(err)
	}
	if err := sweep.Run(); err != nil {
		log.Fatal(err)
	}
}
