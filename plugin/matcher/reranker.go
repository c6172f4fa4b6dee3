package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// RerankResult is one validated entry of the reasoning service response.
type RerankResult struct {
	Index      int     // candidate index within the request batch
	Confidence float64 // in [0,1]
}

// RerankerService reorders a candidate batch through an external reasoning
// service. One call covers the whole batch.
type RerankerService interface {
	// RerankBatch returns validated (index, confidence) pairs for the
	// given candidate summaries.
	RerankBatch(ctx context.Context, requester RequesterProfile, summaries []CandidateSummary) ([]RerankResult, error)

	// IsEnabled returns whether the service is configured.
	IsEnabled() bool
}

type rerankerService struct {
	enabled bool
	client  *openai.Client
	model   string
}

// NewRerankerService creates a new RerankerService.
func NewRerankerService(cfg *RerankerConfig) RerankerService {
	svc := &rerankerService{
		enabled: cfg.Enabled,
		model:   cfg.Model,
	}
	if cfg.Enabled {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		svc.client = openai.NewClientWithConfig(clientConfig)
	}
	return svc
}

func (s *rerankerService) IsEnabled() bool {
	return s.enabled
}

const rerankSystemPrompt = `You rank pet sitter candidates for a pet owner.
Given the requester profile and a numbered candidate list, respond with a
JSON array only, ordered best first. Each element must be
{"index": <candidate index>, "confidence": <0..1>}. No other text.`

// RerankBatch issues exactly one reasoning call. There is no retry: the
// caller degrades every candidate to the fallback confidence on error.
func (s *rerankerService) RerankBatch(ctx context.Context, requester RequesterProfile, summaries []CandidateSummary) ([]RerankResult, error) {
	if !s.enabled {
		return nil, fmt.Errorf("reranker is not configured")
	}
	if len(summaries) == 0 {
		return []RerankResult{}, nil
	}

	payload := struct {
		Requester  RequesterProfile   `json:"requester_profile"`
		Candidates []CandidateSummary `json:"candidate_summaries"`
	}{requester, summaries}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty rerank response")
	}

	return parseRerankResponse(resp.Choices[0].Message.Content, len(summaries))
}

// parseRerankResponse extracts and validates the ranked confidence list.
// Out-of-range and duplicate indices are dropped rather than trusted;
// confidences are clamped to [0,1]. An error means the whole response is
// unusable and the caller must fall back.
func parseRerankResponse(content string, n int) ([]RerankResult, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in rerank response")
	}

	var items []struct {
		Index      int     `json:"index"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("malformed rerank response: %w", err)
	}

	seen := make(map[int]struct{}, len(items))
	results := make([]RerankResult, 0, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= n {
			continue
		}
		if _, dup := seen[item.Index]; dup {
			continue
		}
		seen[item.Index] = struct{}{}
		results = append(results, RerankResult{
			Index:      item.Index,
			Confidence: clamp01(item.Confidence),
		})
	}
	return results, nil
}

// BuildRerankScores spreads validated rerank results over an index-aligned
// score slice. Candidates the service did not score get the fallback
// constant.
func BuildRerankScores(results []RerankResult, n int, fallback float64) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = fallback
	}
	for _, r := range results {
		if r.Index >= 0 && r.Index < n {
			scores[r.Index] = r.Confidence
		}
	}
	return scores
}

// SummarizeCandidate builds the compact sitter description sent to the
// reasoning service.
func SummarizeCandidate(s SitterProfile) CandidateSummary {
	parts := []string{
		fmt.Sprintf("rating %.1f (%d reviews)", s.Rating, s.ReviewCount),
		fmt.Sprintf("%.0f years experience", s.YearsExperience),
		fmt.Sprintf("$%.0f/hr", s.HourlyRate),
	}
	if len(s.Services) > 0 {
		parts = append(parts, "services: "+strings.Join(s.Services, ", "))
	}
	if len(s.Certifications) > 0 {
		parts = append(parts, "certified: "+strings.Join(s.Certifications, ", "))
	}
	if s.Insured {
		parts = append(parts, "insured")
	}
	if s.Bio != "" {
		parts = append(parts, s.Bio)
	}
	return CandidateSummary{
		ID:      s.ID,
		Summary: strings.Join(parts, "; "),
	}
}
