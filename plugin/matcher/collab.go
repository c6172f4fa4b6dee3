package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CollaborativeScorer scores a (requester, candidate) pair through a
// pretrained pairwise preference model.
type CollaborativeScorer interface {
	// Score returns the model's preference score in [0,1].
	Score(ctx context.Context, requesterID, candidateID string) (float64, error)

	// IsEnabled returns whether the service is configured.
	IsEnabled() bool
}

type collabScorer struct {
	enabled bool
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewCollaborativeScorer creates a new CollaborativeScorer.
func NewCollaborativeScorer(cfg *CollabConfig) CollaborativeScorer {
	return &collabScorer{
		enabled: cfg.Enabled,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
	}
}

func (s *collabScorer) IsEnabled() bool {
	return s.enabled
}

// Score issues a single inference call; there is no retry, the caller
// degrades to the fallback constant on error.
func (s *collabScorer) Score(ctx context.Context, requesterID, candidateID string) (float64, error) {
	if !s.enabled {
		return 0, fmt.Errorf("collaborative model is not configured")
	}

	reqBody := map[string]string{
		"requester_id": requesterID,
		"candidate_id": candidateID,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("preference model error: %s", string(body))
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}

	return clamp01(result.Score), nil
}
