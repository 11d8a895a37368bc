package deployment

import (
	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/config"
	"github.com/eth-easl/perfcost/pkg/faas"
)

// CreateDeployment resolves the backend collaborator for the configured
// platform. Cloud platforms plug in here; "endpoint" drives a function that
// is already deployed and reachable over HTTP.
func CreateDeployment(cfg *config.PerfCostConfiguration) faas.Deployment {
	switch cfg.Platform {
	case "endpoint":
		return newEndpointDeployment(cfg.Endpoint)
	default:
		log.Fatalf("Unsupported platform %q.", cfg.Platform)
	}

	return nil
}
