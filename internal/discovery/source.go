// Package discovery wraps the external discovery-source collaborator. How
// candidates are actually found (trending feeds, search indexes, …) is the
// provider's business; this package only speaks its HTTP contract.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
)

const httpTimeout = 15 * time.Second

// Source returns candidate creators for a topic. Implementations are
// black boxes; candidates come back unvalidated.
type Source interface {
	SearchCreatorsByTopic(ctx context.Context, topic string, limit int) ([]model.DiscoveryCandidate, error)
}

// HTTPSource is the HTTP implementation of Source. If the API key is
// missing, Search returns no candidates and logs a warning so scheduled
// discovery runs degrade gracefully instead of failing.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource constructs a source with a shared HTTP client.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// SearchCreatorsByTopic queries the provider for up to limit candidates.
func (s *HTTPSource) SearchCreatorsByTopic(ctx context.Context, topic string, limit int) ([]model.DiscoveryCandidate, error) {
	if s.baseURL == "" || s.apiKey == "" {
		log.Println("[discovery] DISCOVERY_BASE_URL / DISCOVERY_API_KEY not set — skipping search")
		return nil, nil
	}

	params := url.Values{}
	params.Set("topic", topic)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/v1/creators/search?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Transient("discovery search", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transient("discovery read body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errs.Transient("discovery search",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery source returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Candidates []model.DiscoveryCandidate `json:"candidates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	for i := range payload.Candidates {
		if payload.Candidates[i].Topic == "" {
			payload.Candidates[i].Topic = topic
		}
	}
	return payload.Candidates, nil
}
