package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPSource is a RateSource backed by a JSON endpoint of the shape
// exchangerate-api.com exposes: GET <baseURL>/<from> -> {"rates": {...}}.
type HTTPSource struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds an HTTPSource with a 10s request timeout, matching
// the suspension-point timeout discipline used for every outbound HTTP call.
func NewHTTPSource(name, baseURL string) *HTTPSource {
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	rate, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate %s->%s not present in response", from, to)
	}

	return decimal.NewFromFloat(rate), nil
}
