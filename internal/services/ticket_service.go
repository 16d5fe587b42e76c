// Package services – TicketService
//
// This file implements TicketService, the application-level component that
// owns the ticket lifecycle. It validates inputs, persists through the repo
// layer, and keeps the in-memory search index synchronized with every write.
// Index synchronization is best-effort: a failed index write is logged and
// the persisted change stands, so index and store may transiently diverge
// until the next successful write for that ticket.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include ticket identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-ticket-backend/internal/domain"
	"github.com/tbourn/go-ticket-backend/internal/repo"
	"github.com/tbourn/go-ticket-backend/internal/search"
)

const (
	defaultPageSize    = 20
	defaultSearchLimit = 10
	recentActivitySize = 10
	similarInsightsTop = 3
)

// TicketCreate carries the fields accepted when opening a ticket.
type TicketCreate struct {
	Title       string
	Description string
	Priority    domain.Priority
	Category    domain.Category
	Assignee    string
	Reporter    string
	Tags        []string
}

// TicketUpdate carries the optional fields of a partial update. Nil pointers
// leave the stored value untouched.
type TicketUpdate struct {
	Title           *string
	Description     *string
	Status          *domain.Status
	Priority        *domain.Priority
	Category        *domain.Category
	Assignee        *string
	Tags            []string
	ResolutionNotes *string
}

func (u TicketUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.Category == nil && u.Assignee == nil &&
		u.Tags == nil && u.ResolutionNotes == nil
}

// SearchResult is the outcome of a ranked search: matched tickets in rank
// order, their scores keyed by id, and the elapsed search time.
type SearchResult struct {
	Tickets          []domain.Ticket   `json:"tickets"`
	TotalCount       int               `json:"total_count"`
	SearchTimeMillis float64           `json:"search_time_ms"`
	Query            string            `json:"query"`
	SimilarityScores map[int64]float64 `json:"similarity_scores"`
}

// Analytics aggregates ticket statistics for the summary endpoint.
type Analytics struct {
	TotalTickets       int64                `json:"total_tickets"`
	OpenTickets        int64                `json:"open_tickets"`
	ClosedTickets      int64                `json:"closed_tickets"`
	AvgResolutionHours *float64             `json:"avg_resolution_time_hours"`
	TicketsByStatus    map[string]int64     `json:"tickets_by_status"`
	TicketsByPriority  map[string]int64     `json:"tickets_by_priority"`
	TicketsByCategory  map[string]int64     `json:"tickets_by_category"`
	RecentActivity     []repo.ActivityEntry `json:"recent_activity"`
}

// TicketInsights pairs a ticket with its generated insight texts.
type TicketInsights struct {
	Ticket   domain.Ticket `json:"ticket"`
	Insights InsightSet    `json:"ai_insights"`
}

// InsightSet is the generated portion of TicketInsights.
type InsightSet struct {
	Summary              string             `json:"summary"`
	ResolutionSuggestion string             `json:"resolution_suggestion"`
	SentimentAnalysis    *SentimentAnalysis `json:"sentiment_analysis"`
	SimilarTicketIDs     []int64            `json:"similar_ticket_ids"`
}

// TicketService coordinates persistence, search-index sync, and insights.
type TicketService struct {
	DB       *gorm.DB
	Index    *search.Index
	Engine   *search.Engine
	Insights *InsightsService

	// Caps applied to caller-supplied limits; zero means no cap.
	MaxSearchLimit int
	MaxPageSize    int
}

// RebuildIndex repopulates the search index from every persisted ticket.
// Called once at startup; the index is never persisted itself.
func (s *TicketService) RebuildIndex(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "RebuildIndex")
	defer span.End()

	tickets, err := repo.ListAllTickets(ctx, s.DB)
	if err != nil {
		return 0, err
	}
	s.Index.Reset()
	indexed := 0
	for i := range tickets {
		if err := s.Index.Add(&tickets[i]); err != nil {
			log.Warn().Err(err).Int64("ticket_id", tickets[i].ID).Msg("index rebuild: skipping ticket")
			continue
		}
		indexed++
	}
	return indexed, nil
}

// Create validates and persists a new ticket, then indexes it.
func (s *TicketService) Create(ctx context.Context, in TicketCreate) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Reporter = strings.TrimSpace(in.Reporter)

	if in.Title == "" {
		return nil, ErrEmptyTitle
	}
	if in.Description == "" {
		return nil, ErrEmptyDescription
	}
	if in.Reporter == "" {
		return nil, ErrEmptyReporter
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if in.Category == "" {
		in.Category = domain.CategoryOther
	}
	if !in.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	t := &domain.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.StatusOpen,
		Priority:    in.Priority,
		Category:    in.Category,
		Assignee:    strings.TrimSpace(in.Assignee),
		Reporter:    in.Reporter,
		Tags:        in.Tags,
	}
	if err := repo.CreateTicket(ctx, s.DB, t); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("ticket.id", t.ID))

	s.indexWrite(t, "create")
	return t, nil
}

// Get fetches a single ticket by id.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("ticket.id", id)),
	)
	defer span.End()

	t, err := repo.GetTicket(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// ListPage returns a filtered, paginated slice of tickets plus the matching
// total, most recent first.
func (s *TicketService) ListPage(ctx context.Context, f repo.TicketFilter, page, pageSize int) ([]domain.Ticket, int64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if s.MaxPageSize > 0 && pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountTickets(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ticket{}, 0, nil
	}
	items, err := repo.ListTickets(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Update applies a partial update to an existing ticket. A transition into
// resolved or closed stamps ResolvedAt once; later transitions never clear it.
func (s *TicketService) Update(ctx context.Context, id int64, in TicketUpdate) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("ticket.id", id)),
	)
	defer span.End()

	if in.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	t, err := repo.GetTicket(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" {
			return nil, ErrEmptyTitle
		}
		t.Title = v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return nil, ErrEmptyDescription
		}
		t.Description = v
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		t.Status = *in.Status
		if t.Status.Terminal() && t.ResolvedAt == nil {
			now := time.Now().UTC()
			t.ResolvedAt = &now
		}
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		t.Priority = *in.Priority
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			return nil, ErrInvalidCategory
		}
		t.Category = *in.Category
	}
	if in.Assignee != nil {
		t.Assignee = strings.TrimSpace(*in.Assignee)
	}
	if in.Tags != nil {
		t.Tags = in.Tags
	}
	if in.ResolutionNotes != nil {
		t.ResolutionNotes = strings.TrimSpace(*in.ResolutionNotes)
	}

	if err := repo.SaveTicket(ctx, s.DB, t); err != nil {
		return nil, err
	}

	s.indexWrite(t, "update")
	return t, nil
}

// Delete removes a ticket and drops it from the index.
func (s *TicketService) Delete(ctx context.Context, id int64) error {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("ticket.id", id)),
	)
	defer span.End()

	err := repo.DeleteTicket(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTicketNotFound
	}
	if err != nil {
		return err
	}
	s.Index.Remove(id)
	return nil
}

// Search runs the ranked keyword query and resolves the hit ids back to full
// records, preserving rank order. Ids the store no longer knows are dropped.
func (s *TicketService) Search(ctx context.Context, query string, filters search.Filters, limit int) (*SearchResult, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", query),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if s.MaxSearchLimit > 0 && limit > s.MaxSearchLimit {
		limit = s.MaxSearchLimit
	}

	start := time.Now()
	hits := s.Engine.Query(query, filters, limit)

	result := &SearchResult{
		Tickets:          []domain.Ticket{},
		Query:            query,
		SimilarityScores: make(map[int64]float64, len(hits)),
	}
	if len(hits) > 0 {
		ids := make([]int64, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.ID)
			result.SimilarityScores[h.ID] = h.Score
		}
		rows, err := repo.ListTicketsByIDs(ctx, s.DB, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]domain.Ticket, len(rows))
		for _, r := range rows {
			byID[r.ID] = r
		}
		for _, h := range hits {
			if t, ok := byID[h.ID]; ok {
				result.Tickets = append(result.Tickets, t)
			}
		}
	}
	result.TotalCount = len(result.Tickets)
	result.SearchTimeMillis = float64(time.Since(start).Microseconds()) / 1000.0
	return result, nil
}

// Similar returns tickets ranked by keyword similarity to the given ticket,
// excluding the ticket itself.
func (s *TicketService) Similar(ctx context.Context, id int64, limit int) ([]domain.Ticket, map[int64]float64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Similar",
		trace.WithAttributes(attribute.Int64("ticket.id", id)),
	)
	defer span.End()

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if s.MaxSearchLimit > 0 && limit > s.MaxSearchLimit {
		limit = s.MaxSearchLimit
	}

	hits := s.Engine.Similar(t, limit)
	if len(hits) == 0 {
		return []domain.Ticket{}, map[int64]float64{}, nil
	}

	ids := make([]int64, 0, len(hits))
	scores := make(map[int64]float64, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
		scores[h.ID] = h.Score
	}
	rows, err := repo.ListTicketsByIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]domain.Ticket, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]domain.Ticket, 0, len(hits))
	for _, h := range hits {
		if row, ok := byID[h.ID]; ok {
			out = append(out, row)
		}
	}
	return out, scores, nil
}

// GetAnalytics aggregates ticket statistics: totals, per-enum distributions,
// average resolution time, and the most recent activity.
func (s *TicketService) GetAnalytics(ctx context.Context) (*Analytics, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "GetAnalytics")
	defer span.End()

	total, _, err := repo.TicketsStats(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	open, closed, err := repo.OpenClosedCounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byStatus, err := repo.CountTicketsGrouped(ctx, s.DB, "status")
	if err != nil {
		return nil, err
	}
	byPriority, err := repo.CountTicketsGrouped(ctx, s.DB, "priority")
	if err != nil {
		return nil, err
	}
	byCategory, err := repo.CountTicketsGrouped(ctx, s.DB, "category")
	if err != nil {
		return nil, err
	}

	// Every enum value appears in the distributions, zero or not.
	for _, v := range domain.Statuses() {
		if _, ok := byStatus[string(v)]; !ok {
			byStatus[string(v)] = 0
		}
	}
	for _, v := range domain.Priorities() {
		if _, ok := byPriority[string(v)]; !ok {
			byPriority[string(v)] = 0
		}
	}
	for _, v := range domain.Categories() {
		if _, ok := byCategory[string(v)]; !ok {
			byCategory[string(v)] = 0
		}
	}

	out := &Analytics{
		TotalTickets:      total,
		OpenTickets:       open,
		ClosedTickets:     closed,
		TicketsByStatus:   byStatus,
		TicketsByPriority: byPriority,
		TicketsByCategory: byCategory,
	}

	if hours, ok, err := repo.AvgResolutionHours(ctx, s.DB); err != nil {
		return nil, err
	} else if ok {
		out.AvgResolutionHours = &hours
	}

	activity, err := repo.RecentActivity(ctx, s.DB, recentActivitySize)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		activity = []repo.ActivityEntry{}
	}
	out.RecentActivity = activity
	return out, nil
}

// GetInsights composes the generated summary, resolution suggestion,
// sentiment analysis, and the top similar ticket ids for one ticket.
func (s *TicketService) GetInsights(ctx context.Context, id int64) (*TicketInsights, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "GetInsights",
		trace.WithAttributes(attribute.Int64("ticket.id", id)),
	)
	defer span.End()

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	similar := s.Engine.Similar(t, similarInsightsTop)
	ids := make([]int64, 0, len(similar))
	for _, h := range similar {
		ids = append(ids, h.ID)
	}

	return &TicketInsights{
		Ticket: *t,
		Insights: InsightSet{
			Summary:              s.Insights.Summarize(t),
			ResolutionSuggestion: s.Insights.SuggestResolution(t),
			SentimentAnalysis:    s.Insights.AnalyzeSentiment(t),
			SimilarTicketIDs:     ids,
		},
	}, nil
}

// GenerateCollectionInsights produces distribution statistics and a textual
// report over a sample of tickets, optionally narrowed by category.
func (s *TicketService) GenerateCollectionInsights(ctx context.Context, category domain.Category, sampleSize int) (*CollectionInsights, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "GenerateCollectionInsights")
	defer span.End()

	if sampleSize < 1 {
		sampleSize = 50
	}
	var f repo.TicketFilter
	if category != "" {
		if !category.Valid() {
			return nil, ErrInvalidCategory
		}
		f.Categories = []domain.Category{category}
	}
	tickets, err := repo.ListTickets(ctx, s.DB, f, 0, sampleSize)
	if err != nil {
		return nil, err
	}
	return s.Insights.CollectionInsights(tickets), nil
}

// indexWrite pushes the ticket into the search index after a successful
// store write. Failures are logged and swallowed.
func (s *TicketService) indexWrite(t *domain.Ticket, op string) {
	if err := s.Index.Update(t); err != nil {
		log.Warn().Err(err).Int64("ticket_id", t.ID).Str("op", op).Msg("search index write failed")
	}
}
