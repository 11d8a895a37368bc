package deployment

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/faas"
	"github.com/eth-easl/perfcost/pkg/trigger"
)

// endpointDeployment drives a pre-deployed function through its bare HTTP
// endpoint. There is no control plane behind it: memory reconfiguration and
// cold-start enforcement need provider APIs and are unsupported, and no
// provider-side telemetry exists to download.
type endpointDeployment struct {
	endpoint string
}

func newEndpointDeployment(endpoint string) *endpointDeployment {
	if endpoint == "" {
		log.Fatal("Endpoint platform requires an endpoint URL.")
	}
	return &endpointDeployment{endpoint: endpoint}
}

func (d *endpointDeployment) GetFunction(benchmark string) (*faas.Function, error) {
	return &faas.Function{Name: benchmark, Endpoint: d.endpoint}, nil
}

func (d *endpointDeployment) UpdateFunction(function *faas.Function, benchmark string) error {
	return fmt.Errorf("endpoint deployments cannot reconfigure function %s", function.Name)
}

func (d *endpointDeployment) CreateTrigger(function *faas.Function) (faas.Trigger, error) {
	return trigger.NewHTTPTrigger(function), nil
}

func (d *endpointDeployment) EnforceColdStart(functions []*faas.Function, counter int) error {
	return fmt.Errorf("endpoint deployments cannot enforce cold starts")
}

func (d *endpointDeployment) DownloadMetrics(function string, start, end time.Time,
	invocations map[string]*faas.InvocationOutcome) error {
	log.Debugf("No provider metrics available for endpoint-deployed %s", function)
	return nil
}
