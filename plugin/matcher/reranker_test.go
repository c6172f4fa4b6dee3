package matcher

import (
	"context"
	"strings"
	"testing"
)

func TestParseRerankResponse(t *testing.T) {
	t.Run("ValidResponse", func(t *testing.T) {
		content := `[{"index": 1, "confidence": 0.9}, {"index": 0, "confidence": 0.4}]`
		results, err := parseRerankResponse(content, 2)
		if err != nil {
			t.Fatalf("parseRerankResponse() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Index != 1 || results[0].Confidence != 0.9 {
			t.Errorf("unexpected first result %+v", results[0])
		}
	})

	t.Run("SurroundingProseIsTolerated", func(t *testing.T) {
		content := "Here is the ranking:\n[{\"index\": 0, \"confidence\": 0.8}]\nHope that helps!"
		results, err := parseRerankResponse(content, 1)
		if err != nil {
			t.Fatalf("parseRerankResponse() error = %v", err)
		}
		if len(results) != 1 || results[0].Confidence != 0.8 {
			t.Errorf("unexpected results %+v", results)
		}
	})

	t.Run("OutOfRangeIndicesDropped", func(t *testing.T) {
		content := `[{"index": -1, "confidence": 0.9}, {"index": 5, "confidence": 0.9}, {"index": 1, "confidence": 0.6}]`
		results, err := parseRerankResponse(content, 2)
		if err != nil {
			t.Fatalf("parseRerankResponse() error = %v", err)
		}
		if len(results) != 1 || results[0].Index != 1 {
			t.Errorf("expected only the in-range index, got %+v", results)
		}
	})

	t.Run("DuplicateIndicesDropped", func(t *testing.T) {
		content := `[{"index": 0, "confidence": 0.9}, {"index": 0, "confidence": 0.1}]`
		results, err := parseRerankResponse(content, 2)
		if err != nil {
			t.Fatalf("parseRerankResponse() error = %v", err)
		}
		if len(results) != 1 || results[0].Confidence != 0.9 {
			t.Errorf("expected first occurrence to win, got %+v", results)
		}
	})

	t.Run("ConfidenceClamped", func(t *testing.T) {
		content := `[{"index": 0, "confidence": 1.7}, {"index": 1, "confidence": -0.2}]`
		results, err := parseRerankResponse(content, 2)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Confidence != 1.0 || results[1].Confidence != 0.0 {
			t.Errorf("confidences not clamped: %+v", results)
		}
	})

	t.Run("UnparsableJSONErrors", func(t *testing.T) {
		for _, content := range []string{"not json at all", "[{broken", "{}"} {
			if _, err := parseRerankResponse(content, 3); err == nil {
				t.Errorf("expected error for %q", content)
			}
		}
	})
}

func TestBuildRerankScores(t *testing.T) {
	t.Run("FallbackFillsUnscored", func(t *testing.T) {
		scores := BuildRerankScores([]RerankResult{{Index: 1, Confidence: 0.95}}, 3, 0.7)
		want := []float64{0.7, 0.95, 0.7}
		for i := range want {
			if scores[i] != want[i] {
				t.Errorf("scores[%d] = %f, want %f", i, scores[i], want[i])
			}
		}
	})

	t.Run("NilResultsAllFallback", func(t *testing.T) {
		scores := BuildRerankScores(nil, 4, 0.7)
		for i, s := range scores {
			if s != 0.7 {
				t.Errorf("scores[%d] = %f, want 0.7", i, s)
			}
		}
	})
}

func TestSummarizeCandidate(t *testing.T) {
	summary := SummarizeCandidate(SitterProfile{
		ID:              "sitter-1",
		Rating:          4.9,
		ReviewCount:     120,
		YearsExperience: 7,
		HourlyRate:      35,
		Services:        []string{"boarding", "walking"},
		Certifications:  []string{"pet first aid"},
		Insured:         true,
		Bio:             "Former vet tech.",
	})

	if summary.ID != "sitter-1" {
		t.Errorf("summary id = %q", summary.ID)
	}
	for _, want := range []string{"4.9", "120 reviews", "7 years", "boarding", "pet first aid", "insured", "Former vet tech."} {
		if !strings.Contains(summary.Summary, want) {
			t.Errorf("summary missing %q: %q", want, summary.Summary)
		}
	}
}

func TestRerankerService_Disabled(t *testing.T) {
	svc := NewRerankerService(&RerankerConfig{Enabled: false})
	if svc.IsEnabled() {
		t.Error("expected disabled service")
	}
	if _, err := svc.RerankBatch(context.Background(), RequesterProfile{}, []CandidateSummary{{ID: "a"}}); err == nil {
		t.Error("expected error from disabled service")
	}
}
