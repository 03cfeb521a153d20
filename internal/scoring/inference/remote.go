package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	dErrors "fintrust/pkg/domain-errors"
)

// RemoteRuntime delegates inference to an HTTP model service.
type RemoteRuntime struct {
	url     string
	version string
	client  *http.Client
}

type remoteRequest struct {
	Inputs Feeds `json:"inputs"`
}

type remoteResponse struct {
	ModelVersion string  `json:"model_version"`
	Outputs      Outputs `json:"outputs"`
}

// DefaultRemoteTimeout bounds a single call to the model service. It only cuts
// off calls that are hung: a slow classifier is waited for.
const DefaultRemoteTimeout = 2 * time.Minute

// NewRemoteRuntime builds a runtime posting to url. version labels the score
// records this runtime produces. A non-positive timeout means DefaultRemoteTimeout.
func NewRemoteRuntime(url, version string, timeout time.Duration) *RemoteRuntime {
	if version == "" {
		version = DefaultModelVersion
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteRuntime{
		url:     url,
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *RemoteRuntime) Version() string {
	return r.version
}

func (r *RemoteRuntime) Run(ctx context.Context, feeds Feeds) (Outputs, error) {
	body, err := json.Marshal(remoteRequest{Inputs: feeds})
	if err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "model service timed out")
		}
		return nil, fmt.Errorf("call model service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, dErrors.New(dErrors.CodeModelNotReady, "model service is not ready")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model service returned %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return out.Outputs, nil
}
