package services

import (
	"strings"
	"testing"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          1,
		Title:       "Server performance issue",
		Description: "Users report slow response times on the portal",
		Status:      domain.StatusInProgress,
		Priority:    domain.PriorityHigh,
		Category:    domain.CategoryPerformance,
		Assignee:    "bob",
		Reporter:    "alice",
	}
}

func TestSummarize(t *testing.T) {
	s := NewInsightsService()

	got := s.Summarize(sampleTicket())
	for _, want := range []string{
		"high priority performance-related issue",
		"reported by alice",
		"assigned to bob",
		"with status: in progress",
		"Description: Users report slow response times",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}

	// Long descriptions are previewed.
	tk := sampleTicket()
	tk.Description = strings.Repeat("x", 150)
	if got := s.Summarize(tk); !strings.Contains(got, strings.Repeat("x", 100)+"...") {
		t.Fatalf("description not truncated: %s", got)
	}

	// No assignee clause when unassigned.
	tk = sampleTicket()
	tk.Assignee = ""
	if got := s.Summarize(tk); strings.Contains(got, "assigned to") {
		t.Fatalf("unexpected assignee clause: %s", got)
	}

	if s.Summarize(nil) != "" {
		t.Fatalf("nil ticket should yield empty summary")
	}
}

func TestSuggestResolution(t *testing.T) {
	s := NewInsightsService()

	got := s.SuggestResolution(sampleTicket())
	for _, want := range []string{
		"HIGH PRIORITY: Address this issue as soon as possible.",
		"Suggested resolution steps:",
		"1. Monitor system resource usage",
		"Target resolution: Within 4 hours",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("suggestion missing %q:\n%s", want, got)
		}
	}

	// Unknown category falls back to generic steps.
	tk := sampleTicket()
	tk.Category = domain.CategoryOther
	if got := s.SuggestResolution(tk); !strings.Contains(got, "1. Gather more information about the issue") {
		t.Fatalf("fallback steps missing:\n%s", got)
	}

	tk.Priority = domain.PriorityCritical
	if got := s.SuggestResolution(tk); !strings.Contains(got, "Target resolution: Within 1 hour") {
		t.Fatalf("critical timeline missing:\n%s", got)
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	s := NewInsightsService()

	t.Run("neutral standard request", func(t *testing.T) {
		tk := sampleTicket()
		tk.Title = "request new monitor"
		tk.Description = "would like a second screen"
		tk.Priority = domain.PriorityLow
		got := s.AnalyzeSentiment(tk)
		if got.Sentiment != "neutral" || got.Urgency != "low" || got.RecommendedAction != "standard" {
			t.Fatalf("unexpected: %+v", got)
		}
		if len(got.Concerns) != 1 || got.Concerns[0] != "Standard support request" {
			t.Fatalf("concerns unexpected: %+v", got.Concerns)
		}
	})

	t.Run("urgent negative", func(t *testing.T) {
		tk := sampleTicket()
		tk.Title = "URGENT: production broken"
		tk.Description = "everything is down, this is unacceptable"
		tk.Priority = domain.PriorityCritical
		got := s.AnalyzeSentiment(tk)
		if got.Sentiment != "negative" || got.Urgency != "critical" || got.RecommendedAction != "immediate" {
			t.Fatalf("unexpected: %+v", got)
		}
		joined := strings.Join(got.Concerns, "|")
		if !strings.Contains(joined, "User indicates urgency") || !strings.Contains(joined, "High priority issue") {
			t.Fatalf("concerns unexpected: %+v", got.Concerns)
		}
	})

	t.Run("positive", func(t *testing.T) {
		tk := sampleTicket()
		tk.Title = "thank you, excellent support"
		tk.Description = "everything is good now"
		tk.Priority = domain.PriorityLow
		got := s.AnalyzeSentiment(tk)
		if got.Sentiment != "positive" {
			t.Fatalf("unexpected: %+v", got)
		}
	})

	if s.AnalyzeSentiment(nil) != nil {
		t.Fatalf("nil ticket should yield nil analysis")
	}
}

func TestCollectionInsights(t *testing.T) {
	s := NewInsightsService()

	if s.CollectionInsights(nil) != nil {
		t.Fatalf("empty input should yield nil")
	}

	tickets := []domain.Ticket{
		{Status: domain.StatusOpen, Priority: domain.PriorityHigh, Category: domain.CategoryNetwork},
		{Status: domain.StatusOpen, Priority: domain.PriorityHigh, Category: domain.CategoryNetwork},
		{Status: domain.StatusClosed, Priority: domain.PriorityLow, Category: domain.CategorySoftware},
	}

	got := s.CollectionInsights(tickets)
	if got.AnalyzedTickets != 3 || got.SampleSize != 3 {
		t.Fatalf("counts unexpected: %+v", got)
	}
	if got.Statistics.CategoryDistribution["network"] != 2 ||
		got.Statistics.PriorityDistribution["high"] != 2 ||
		got.Statistics.StatusDistribution["closed"] != 1 {
		t.Fatalf("distributions unexpected: %+v", got.Statistics)
	}
	for _, want := range []string{
		"Analysis of 3 tickets:",
		"Most common category: network (2 tickets)",
		"Most common priority: high (2 tickets)",
		"Focus on network issues for process improvement",
	} {
		if !strings.Contains(got.Insights, want) {
			t.Fatalf("report missing %q:\n%s", want, got.Insights)
		}
	}
	// Labels are title-cased with underscores spelled out.
	multi := s.CollectionInsights([]domain.Ticket{{Status: domain.StatusInProgress, Priority: domain.PriorityLow, Category: domain.CategoryOther}})
	if !strings.Contains(multi.Insights, "In Progress: 1") {
		t.Fatalf("label casing unexpected:\n%s", multi.Insights)
	}
}
