package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

const defaultTimeout = 3 * time.Second

// HTTPReviewer calls an external review service (typically an LLM
// endpoint) over HTTP. Every call carries a timeout so a stalled provider
// resolves to the hook's neutral outcome instead of blocking the response.
type HTTPReviewer struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPReviewer creates a reviewer against the given service URL.
// A zero timeout uses the 3s default.
func NewHTTPReviewer(url string, timeout time.Duration) *HTTPReviewer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPReviewer{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (r *HTTPReviewer) Review(ctx context.Context, req *Request) (*contracts.ReviewOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal review request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build review request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("review service call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("review service returned status %d", resp.StatusCode)
	}

	var outcome contracts.ReviewOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("decode review outcome: %w", err)
	}
	switch outcome.Outcome {
	case contracts.ReviewAgreement, contracts.ReviewDivergence, contracts.ReviewInsufficient:
	default:
		return nil, fmt.Errorf("review service returned unknown outcome %q", outcome.Outcome)
	}
	return &outcome, nil
}
