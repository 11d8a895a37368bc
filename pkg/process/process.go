package process

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/experiment"
	"github.com/eth-easl/perfcost/pkg/faas"
)

// SummaryRow is one invocation in the cross-run result.csv table.
type SummaryRow struct {
	Memory         int     `csv:"memory"`
	Type           string  `csv:"type"`
	IsCold         bool    `csv:"is_cold"`
	ExecTime       float64 `csv:"exec_time"`
	ConnectionTime float64 `csv:"connection_time"`
	ClientTime     float64 `csv:"client_time"`
	ProviderTime   float64 `csv:"provider_time"`
}

// Processor back-fills provider telemetry into persisted raw run documents,
// compacts bulky payload fields, and emits the tabular summary. Re-running
// over already-processed documents is a no-op.
type Processor struct {
	deployment faas.Deployment
	dir        string
	// window padding, in minutes, applied on both ends of the telemetry
	// query interval
	extendInterval int
}

func NewProcessor(deployment faas.Deployment, dir string, extendInterval int) *Processor {
	return &Processor{
		deployment:     deployment,
		dir:            dir,
		extendInterval: extendInterval,
	}
}

func (p *Processor) Run() error {
	files, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return err
	}

	var rows []*SummaryRow
	for _, file := range files {
		document, err := p.processFile(file)
		if err != nil {
			return err
		}
		if document == nil {
			continue
		}
		rows = append(rows, summarize(document)...)
	}

	csvFile, err := os.Create(filepath.Join(p.dir, "result.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	return gocsv.MarshalFile(&rows, csvFile)
}

// processFile returns the document whose invocations belong in the summary,
// or nil when the file is a raw document already covered by its processed
// sibling.
func (p *Processor) processFile(file string) (*experiment.RunDocument, error) {
	if strings.HasSuffix(trimExtension(file), "-processed") {
		log.Debugf("Loading processed results from %s", file)
		return experiment.ReadDocument(file)
	}

	processedPath := trimExtension(file) + "-processed" + filepath.Ext(file)
	if _, err := os.Stat(processedPath); err == nil {
		log.Infof("Skipping already processed %s", file)
		return nil, nil
	}

	log.Infof("Processing data in %s", file)
	document, err := experiment.ReadDocument(file)
	if err != nil {
		return nil, err
	}
	if document.Kind != experiment.KindRaw {
		return nil, fmt.Errorf("unexpected document kind %q in %s", document.Kind, file)
	}

	if err := p.downloadMetrics(document); err != nil {
		return nil, err
	}
	compactPayloads(document.Result)

	document.Kind = experiment.KindProcessed
	if err := experiment.WriteDocument(document, processedPath); err != nil {
		return nil, err
	}
	return document, nil
}

func (p *Processor) downloadMetrics(document *experiment.RunDocument) error {
	start, end := document.Result.Times()
	if p.extendInterval > 0 {
		start = start.Add(-time.Duration(p.extendInterval) * time.Minute)
		end = end.Add(time.Duration(p.extendInterval) * time.Minute)
	}

	for _, function := range document.Result.Functions() {
		invocations := document.Result.InvocationsOf(function)
		if err := p.deployment.DownloadMetrics(function, start, end, invocations); err != nil {
			return fmt.Errorf("downloading metrics for %s: %w", function, err)
		}
	}
	return nil
}

// compactPayloads strips the benchmark output carried inside each
// invocation's raw payload. It can be large and has no use once the run is
// summarized.
func compactPayloads(result *experiment.Result) {
	for _, function := range result.Functions() {
		for _, invocation := range result.InvocationsOf(function) {
			inner, ok := invocation.RawProviderPayload["result"].(map[string]interface{})
			if !ok {
				continue
			}
			if _, ok := inner["output"]; ok {
				delete(inner, "output")
			} else {
				delete(inner, "result")
			}
		}
	}
}

func summarize(document *experiment.RunDocument) []*SummaryRow {
	var rows []*SummaryRow
	for _, function := range document.Result.Functions() {
		invocations := document.Result.InvocationsOf(function)

		ids := make([]string, 0, len(invocations))
		for id := range invocations {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			invocation := invocations[id]
			rows = append(rows, &SummaryRow{
				Memory:         document.MemoryMB,
				Type:           document.RunType,
				IsCold:         invocation.IsColdStart,
				ExecTime:       invocation.ExecTimeMs,
				ConnectionTime: invocation.HTTPSetupMs,
				ClientTime:     invocation.LatencyClientMs,
				ProviderTime:   invocation.LatencyProviderMs,
			})
		}
	}
	return rows
}

func trimExtension(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
