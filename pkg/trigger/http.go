package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/eth-easl/perfcost/pkg/faas"
)

// HTTPTrigger invokes a deployed benchmark function over its HTTP endpoint
// and measures client-side latency and connection setup time.
type HTTPTrigger struct {
	function *faas.Function
	client   *http.Client
}

func NewHTTPTrigger(function *faas.Function) *HTTPTrigger {
	return &HTTPTrigger{
		function: function,
		client:   http.DefaultClient,
	}
}

// functionResponse is the wire format the benchmark wrapper returns. Begin
// and End are Unix timestamps in seconds measured inside the function.
type functionResponse struct {
	RequestID string                 `json:"request_id"`
	IsCold    bool                   `json:"is_cold"`
	Begin     float64                `json:"begin"`
	End       float64                `json:"end"`
	Result    map[string]interface{} `json:"result"`
}

func (t *HTTPTrigger) SyncInvoke(payload map[string]interface{}) (*faas.InvocationOutcome, error) {
	log.Tracef("(Invoke)\t %s: %s", t.function.Name, t.function.Endpoint)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload for %s: %w", t.function.Name, err)
	}

	req, err := http.NewRequest(http.MethodPost, t.function.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", t.function.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var connEstablished time.Time
	trace := &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) {
			connEstablished = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	res, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invocation of %s failed: %w", t.function.Name, err)
	}
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	clientLatency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response of %s: %w", t.function.Name, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("invocation of %s failed - status %s", t.function.Name, res.Status)
	}

	var parsed functionResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response of %s: %w", t.function.Name, err)
	}
	if parsed.RequestID == "" {
		parsed.RequestID = uuid.New().String()
	}

	setup := 0.0
	if !connEstablished.IsZero() {
		setup = float64(connEstablished.Sub(start).Microseconds()) / 1e3
	}

	outcome := &faas.InvocationOutcome{
		RequestID:       parsed.RequestID,
		LatencyClientMs: float64(clientLatency.Microseconds()) / 1e3,
		// back-filled offline from provider telemetry
		LatencyProviderMs:  -1,
		HTTPSetupMs:        setup,
		ExecTimeMs:         (parsed.End - parsed.Begin) * 1e3,
		IsColdStart:        parsed.IsCold,
		RawProviderPayload: map[string]interface{}{"result": parsed.Result},
	}

	log.Tracef("(Replied)\t %s: %s cold: %t %.2f[ms]",
		t.function.Name, outcome.RequestID, outcome.IsColdStart, outcome.LatencyClientMs)

	return outcome, nil
}
