// Package services – InsightsService
//
// Deterministic rule-based text generation for tickets: summaries, resolution
// suggestions with priority notes and target timelines, keyword-driven
// sentiment/urgency analysis, and collection-level distribution reports.
// There is no model behind these; the same input always yields the same text.
package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

const descriptionPreviewRunes = 100

// SentimentAnalysis is the rule-based read of a ticket's tone and urgency.
type SentimentAnalysis struct {
	Analysis          string   `json:"analysis"`
	Confidence        float64  `json:"confidence"`
	ModelUsed         string   `json:"model_used"`
	Sentiment         string   `json:"sentiment"`
	Urgency           string   `json:"urgency"`
	Concerns          []string `json:"concerns"`
	RecommendedAction string   `json:"recommended_action"`
}

// CollectionInsights is a statistical report over a set of tickets.
type CollectionInsights struct {
	Insights        string    `json:"insights"`
	AnalyzedTickets int       `json:"analyzed_tickets"`
	SampleSize      int       `json:"sample_size"`
	GeneratedAt     time.Time `json:"generated_at"`
	Statistics      struct {
		StatusDistribution   map[string]int `json:"status_distribution"`
		PriorityDistribution map[string]int `json:"priority_distribution"`
		CategoryDistribution map[string]int `json:"category_distribution"`
	} `json:"statistics"`
}

// InsightsService generates insight texts. The zero value is not usable;
// construct with NewInsightsService.
type InsightsService struct {
	titleCaser cases.Caser
}

// NewInsightsService returns a ready InsightsService.
func NewInsightsService() *InsightsService {
	return &InsightsService{titleCaser: cases.Title(language.English)}
}

var priorityText = map[domain.Priority]string{
	domain.PriorityLow:      "low priority",
	domain.PriorityMedium:   "medium priority",
	domain.PriorityHigh:     "high priority",
	domain.PriorityCritical: "critical priority",
}

var categoryText = map[domain.Category]string{
	domain.CategoryHardware:    "hardware-related",
	domain.CategorySoftware:    "software-related",
	domain.CategoryNetwork:     "network-related",
	domain.CategoryAccess:      "access-related",
	domain.CategoryPerformance: "performance-related",
	domain.CategorySecurity:    "security-related",
	domain.CategoryOther:       "general",
}

// Summarize builds a one-paragraph description of the ticket.
func (s *InsightsService) Summarize(t *domain.Ticket) string {
	if t == nil {
		return ""
	}
	pri, ok := priorityText[t.Priority]
	if !ok {
		pri = "unknown"
	}
	cat, ok := categoryText[t.Category]
	if !ok {
		cat = "general"
	}

	parts := []string{
		fmt.Sprintf("This is a %s %s issue", pri, cat),
		"reported by " + t.Reporter,
	}
	if t.Assignee != "" {
		parts = append(parts, "assigned to "+t.Assignee)
	}
	parts = append(parts, "with status: "+strings.ReplaceAll(string(t.Status), "_", " "))

	preview := t.Description
	if runes := []rune(preview); len(runes) > descriptionPreviewRunes {
		preview = string(runes[:descriptionPreviewRunes]) + "..."
	}
	parts = append(parts, "Description: "+preview)

	return strings.Join(parts, ". ") + "."
}

var categorySteps = map[domain.Category][]string{
	domain.CategoryHardware: {
		"1. Check physical connections and power supply",
		"2. Run hardware diagnostics",
		"3. Check for firmware updates",
		"4. Contact hardware vendor if under warranty",
	},
	domain.CategorySoftware: {
		"1. Restart the application or service",
		"2. Check for software updates",
		"3. Review error logs for specific issues",
		"4. Reinstall software if necessary",
	},
	domain.CategoryNetwork: {
		"1. Check network cable connections",
		"2. Restart network equipment (router, switch)",
		"3. Test connectivity with ping/traceroute",
		"4. Contact network administrator",
	},
	domain.CategoryAccess: {
		"1. Verify user credentials",
		"2. Check account status and permissions",
		"3. Reset password if necessary",
		"4. Contact system administrator",
	},
	domain.CategoryPerformance: {
		"1. Monitor system resource usage",
		"2. Close unnecessary applications",
		"3. Clear temporary files and cache",
		"4. Consider system upgrade if resources are insufficient",
	},
	domain.CategorySecurity: {
		"1. Run security scan immediately",
		"2. Change all passwords",
		"3. Review access logs",
		"4. Contact security team",
	},
}

var fallbackSteps = []string{
	"1. Gather more information about the issue",
	"2. Document steps to reproduce the problem",
	"3. Check system logs for errors",
	"4. Escalate to appropriate technical team",
}

var priorityNotes = map[domain.Priority]string{
	domain.PriorityCritical: "URGENT: This is a critical issue requiring immediate attention.",
	domain.PriorityHigh:     "HIGH PRIORITY: Address this issue as soon as possible.",
	domain.PriorityMedium:   "MEDIUM PRIORITY: Address within normal business hours.",
	domain.PriorityLow:      "LOW PRIORITY: Can be addressed during routine maintenance.",
}

var timelineEstimates = map[domain.Priority]string{
	domain.PriorityCritical: "Target resolution: Within 1 hour",
	domain.PriorityHigh:     "Target resolution: Within 4 hours",
	domain.PriorityMedium:   "Target resolution: Within 24 hours",
	domain.PriorityLow:      "Target resolution: Within 1 week",
}

// SuggestResolution assembles category steps, a priority note, and a target
// timeline into one suggestion text.
func (s *InsightsService) SuggestResolution(t *domain.Ticket) string {
	if t == nil {
		return ""
	}
	steps, ok := categorySteps[t.Category]
	if !ok {
		steps = fallbackSteps
	}

	var b strings.Builder
	if note, ok := priorityNotes[t.Priority]; ok {
		b.WriteString(note)
		b.WriteString("\n\n")
	}
	b.WriteString("Suggested resolution steps:\n")
	b.WriteString(strings.Join(steps, "\n"))

	timeline, ok := timelineEstimates[t.Priority]
	if !ok {
		timeline = "Target resolution: As resources permit"
	}
	b.WriteString("\n\n")
	b.WriteString(timeline)
	return b.String()
}

var (
	urgentKeywords   = []string{"urgent", "critical", "emergency", "asap", "immediately", "broken", "down", "failed"}
	negativeKeywords = []string{"frustrated", "angry", "unacceptable", "terrible", "awful", "worst"}
	positiveKeywords = []string{"thank", "appreciate", "good", "excellent", "working"}
)

func countKeywords(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// AnalyzeSentiment classifies tone, urgency, concerns, and a recommended
// action from simple keyword counts over title and description.
func (s *InsightsService) AnalyzeSentiment(t *domain.Ticket) *SentimentAnalysis {
	if t == nil {
		return nil
	}
	text := strings.ToLower(t.Title + " " + t.Description)

	urgent := countKeywords(text, urgentKeywords)
	negative := countKeywords(text, negativeKeywords)
	positive := countKeywords(text, positiveKeywords)

	sentiment := "neutral"
	switch {
	case positive > negative:
		sentiment = "positive"
	case negative > 0 || urgent > 0:
		sentiment = "negative"
	}

	urgency := "low"
	switch {
	case t.Priority == domain.PriorityCritical || urgent >= 2:
		urgency = "critical"
	case t.Priority == domain.PriorityHigh || urgent >= 1:
		urgency = "high"
	case t.Priority == domain.PriorityMedium:
		urgency = "medium"
	}

	var concerns []string
	if urgent > 0 {
		concerns = append(concerns, "User indicates urgency")
	}
	if negative > 0 {
		concerns = append(concerns, "User expresses frustration")
	}
	if t.Priority == domain.PriorityCritical || t.Priority == domain.PriorityHigh {
		concerns = append(concerns, "High priority issue")
	}
	if len(concerns) == 0 {
		concerns = append(concerns, "Standard support request")
	}

	action := "standard"
	switch urgency {
	case "critical":
		action = "immediate"
	case "high":
		action = "priority"
	}

	analysis := fmt.Sprintf("Sentiment: %s\nUrgency Level: %s\nKey Concerns: %s\nRecommended Action: %s response",
		sentiment, urgency, strings.Join(concerns, ", "), action)

	return &SentimentAnalysis{
		Analysis:          analysis,
		Confidence:        0.7, // fixed for a rule-based analyzer
		ModelUsed:         "rule_based_analyzer",
		Sentiment:         sentiment,
		Urgency:           urgency,
		Concerns:          concerns,
		RecommendedAction: action,
	}
}

// CollectionInsights computes distribution statistics over the given tickets
// and renders them as a textual report. Returns nil for an empty input.
func (s *InsightsService) CollectionInsights(tickets []domain.Ticket) *CollectionInsights {
	if len(tickets) == 0 {
		return nil
	}

	statusCounts := map[string]int{}
	priorityCounts := map[string]int{}
	categoryCounts := map[string]int{}
	for _, t := range tickets {
		statusCounts[string(t.Status)]++
		priorityCounts[string(t.Priority)]++
		categoryCounts[string(t.Category)]++
	}

	topCategory := topKey(categoryCounts)
	topPriority := topKey(priorityCounts)

	text := fmt.Sprintf(`Analysis of %d tickets:

1. Common Themes:
   - Most common category: %s (%d tickets)
   - Most common priority: %s (%d tickets)

2. Status Distribution:
   %s

3. Priority Distribution:
   %s

4. Category Distribution:
   %s

5. Recommendations:
   - Focus on %s issues for process improvement
   - Consider dedicated resources for %s priority tickets
   - Monitor trends in ticket volume and resolution times`,
		len(tickets),
		topCategory, categoryCounts[topCategory],
		topPriority, priorityCounts[topPriority],
		s.formatDistribution(statusCounts),
		s.formatDistribution(priorityCounts),
		s.formatDistribution(categoryCounts),
		topCategory, topPriority)

	out := &CollectionInsights{
		Insights:        text,
		AnalyzedTickets: len(tickets),
		SampleSize:      len(tickets),
		GeneratedAt:     time.Now().UTC(),
	}
	out.Statistics.StatusDistribution = statusCounts
	out.Statistics.PriorityDistribution = priorityCounts
	out.Statistics.CategoryDistribution = categoryCounts
	return out
}

// formatDistribution renders counts as "Label: n" pairs in deterministic
// key order, with labels title-cased and underscores spelled as spaces.
func (s *InsightsService) formatDistribution(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		label := s.titleCaser.String(strings.ReplaceAll(k, "_", " "))
		pairs = append(pairs, fmt.Sprintf("%s: %d", label, counts[k]))
	}
	return strings.Join(pairs, ", ")
}

// topKey returns the key with the highest count; ties resolve to the
// lexicographically smallest key so the report is deterministic.
func topKey(counts map[string]int) string {
	best := ""
	bestN := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
