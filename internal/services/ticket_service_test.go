package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ticket-backend/internal/domain"
	"github.com/tbourn/go-ticket-backend/internal/repo"
	"github.com/tbourn/go-ticket-backend/internal/search"
)

func newTicketService(t *testing.T) *TicketService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("ticket_svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	ix := search.NewIndex()
	return &TicketService{
		DB:             db,
		Index:          ix,
		Engine:         search.NewEngine(ix),
		Insights:       NewInsightsService(),
		MaxSearchLimit: 100,
		MaxPageSize:    100,
	}
}

func mustCreate(t *testing.T, s *TicketService, in TicketCreate) *domain.Ticket {
	t.Helper()
	tk, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create(%q): %v", in.Title, err)
	}
	return tk
}

func TestCreate_ValidationAndDefaults(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   TicketCreate
		want error
	}{
		{"empty title", TicketCreate{Description: "d", Reporter: "r"}, ErrEmptyTitle},
		{"empty description", TicketCreate{Title: "t", Reporter: "r"}, ErrEmptyDescription},
		{"empty reporter", TicketCreate{Title: "t", Description: "d"}, ErrEmptyReporter},
		{"bad priority", TicketCreate{Title: "t", Description: "d", Reporter: "r", Priority: "urgent"}, ErrInvalidPriority},
		{"bad category", TicketCreate{Title: "t", Description: "d", Reporter: "r", Category: "billing"}, ErrInvalidCategory},
	}
	for _, tc := range cases {
		if _, err := s.Create(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	tk := mustCreate(t, s, TicketCreate{Title: "  Printer offline ", Description: "tray two", Reporter: "alice"})
	if tk.Status != domain.StatusOpen || tk.Priority != domain.PriorityMedium || tk.Category != domain.CategoryOther {
		t.Fatalf("defaults not applied: %+v", tk)
	}
	if tk.Title != "Printer offline" {
		t.Fatalf("title not trimmed: %q", tk.Title)
	}
	// Create must index the new ticket.
	if got := s.Index.Stats().TotalDocuments; got != 1 {
		t.Fatalf("expected 1 indexed document, got %d", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTicketService(t)
	if _, err := s.Get(context.Background(), 404); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestUpdate_FieldsAndResolvedAt(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()
	tk := mustCreate(t, s, TicketCreate{Title: "VPN down", Description: "all users", Reporter: "alice"})

	if _, err := s.Update(ctx, tk.ID, TicketUpdate{}); !errors.Is(err, ErrNoFieldsToUpdate) {
		t.Fatalf("empty update should fail, got %v", err)
	}
	if _, err := s.Update(ctx, 999, TicketUpdate{Assignee: ptr("bob")}); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("missing ticket should fail, got %v", err)
	}

	bad := domain.Status("reopened")
	if _, err := s.Update(ctx, tk.ID, TicketUpdate{Status: &bad}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("invalid status should fail, got %v", err)
	}

	resolved := domain.StatusResolved
	got, err := s.Update(ctx, tk.ID, TicketUpdate{
		Status:          &resolved,
		Assignee:        ptr("bob"),
		ResolutionNotes: ptr("restarted concentrator"),
		Tags:            []string{"vpn"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != domain.StatusResolved || got.Assignee != "bob" || got.ResolutionNotes != "restarted concentrator" {
		t.Fatalf("fields not applied: %+v", got)
	}
	if got.ResolvedAt == nil {
		t.Fatalf("ResolvedAt not stamped on terminal transition")
	}
	stamp := *got.ResolvedAt

	// A later update must not move the resolution timestamp.
	closed := domain.StatusClosed
	got, err = s.Update(ctx, tk.ID, TicketUpdate{Status: &closed})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(stamp) {
		t.Fatalf("ResolvedAt changed on later transition: %v vs %v", got.ResolvedAt, stamp)
	}

	// Index reflects the update.
	doc, ok := s.Index.Get(tk.ID)
	if !ok || doc.Attributes["status"] != "closed" {
		t.Fatalf("index not updated: %#v (ok=%v)", doc, ok)
	}
}

func TestDelete_RemovesFromStoreAndIndex(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()
	tk := mustCreate(t, s, TicketCreate{Title: "stale", Description: "old", Reporter: "alice"})

	if err := s.Delete(ctx, tk.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, tk.ID); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("ticket still readable: %v", err)
	}
	if _, ok := s.Index.Get(tk.ID); ok {
		t.Fatalf("index entry survived delete")
	}
	if err := s.Delete(ctx, tk.ID); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}

func TestListPage_FilterAndPagination(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		in := TicketCreate{Title: fmt.Sprintf("ticket %d", i), Description: "d", Reporter: "alice"}
		if i%2 == 0 {
			in.Priority = domain.PriorityHigh
		}
		mustCreate(t, s, in)
	}

	items, total, err := s.ListPage(ctx, repo.TicketFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("pagination unexpected: total=%d items=%d", total, len(items))
	}

	_, total, err = s.ListPage(ctx, repo.TicketFilter{Priorities: []domain.Priority{domain.PriorityHigh}}, 1, 10)
	if err != nil {
		t.Fatalf("ListPage(filter): %v", err)
	}
	if total != 3 {
		t.Fatalf("filter total unexpected: %d", total)
	}

	// Defaults applied for nonsense paging input.
	items, _, err = s.ListPage(ctx, repo.TicketFilter{}, 0, -1)
	if err != nil || len(items) != 5 {
		t.Fatalf("default paging unexpected: items=%d err=%v", len(items), err)
	}
}

func TestSearch_RankOrderScoresAndValidation(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	if _, err := s.Search(ctx, "   ", nil, 10); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("blank query should fail, got %v", err)
	}

	a := mustCreate(t, s, TicketCreate{Title: "Server performance issue", Description: "slow response times", Reporter: "alice", Tags: []string{"server"}})
	b := mustCreate(t, s, TicketCreate{Title: "Email bounce", Description: "server rejects mail", Reporter: "bob"})
	mustCreate(t, s, TicketCreate{Title: "HR question", Description: "holiday allowance", Reporter: "carol"})

	res, err := s.Search(ctx, "server slow", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount != 2 || len(res.Tickets) != 2 {
		t.Fatalf("expected 2 hits, got %+v", res)
	}
	if res.Tickets[0].ID != a.ID || res.Tickets[1].ID != b.ID {
		t.Fatalf("rank order not preserved: %+v", res.Tickets)
	}
	if res.SimilarityScores[a.ID] <= res.SimilarityScores[b.ID] {
		t.Fatalf("scores inconsistent with rank: %+v", res.SimilarityScores)
	}
	if res.Query != "server slow" || res.SearchTimeMillis < 0 {
		t.Fatalf("metadata unexpected: %+v", res)
	}
}

func TestSearch_FilterNarrowsResults(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	mustCreate(t, s, TicketCreate{Title: "server down", Description: "rack 4", Reporter: "alice", Priority: domain.PriorityHigh})
	mustCreate(t, s, TicketCreate{Title: "server noisy", Description: "fan", Reporter: "bob", Priority: domain.PriorityLow})

	res, err := s.Search(ctx, "server", search.Filters{"priority": "high"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount != 1 || res.Tickets[0].Priority != domain.PriorityHigh {
		t.Fatalf("filter unexpected: %+v", res)
	}
}

func TestSimilar_ExcludesSelfAndResolvesRecords(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	ref := mustCreate(t, s, TicketCreate{Title: "Server performance issue", Description: "slow responses", Reporter: "alice"})
	twin := mustCreate(t, s, TicketCreate{Title: "Server performance degraded", Description: "responses slow again", Reporter: "bob"})
	mustCreate(t, s, TicketCreate{Title: "badge printer", Description: "hr lobby", Reporter: "carol"})

	tickets, scores, err := s.Similar(ctx, ref.ID, 5)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(tickets) == 0 {
		t.Fatalf("expected similar tickets")
	}
	for _, tk := range tickets {
		if tk.ID == ref.ID {
			t.Fatalf("similar returned the ticket itself")
		}
	}
	if _, ok := scores[twin.ID]; !ok {
		t.Fatalf("expected a score for the twin ticket: %+v", scores)
	}

	if _, _, err := s.Similar(ctx, 999, 5); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("missing reference should fail, got %v", err)
	}
}

func TestGetAnalytics(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	mustCreate(t, s, TicketCreate{Title: "a", Description: "d", Reporter: "r", Priority: domain.PriorityHigh, Category: domain.CategoryNetwork})
	tk := mustCreate(t, s, TicketCreate{Title: "b", Description: "d", Reporter: "r"})
	resolved := domain.StatusResolved
	if _, err := s.Update(ctx, tk.ID, TicketUpdate{Status: &resolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	a, err := s.GetAnalytics(ctx)
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}
	if a.TotalTickets != 2 || a.OpenTickets != 1 || a.ClosedTickets != 1 {
		t.Fatalf("counts unexpected: %+v", a)
	}
	if a.TicketsByStatus["open"] != 1 || a.TicketsByStatus["resolved"] != 1 {
		t.Fatalf("status distribution unexpected: %#v", a.TicketsByStatus)
	}
	// Zero-valued enum entries are still present.
	if _, ok := a.TicketsByStatus["pending"]; !ok {
		t.Fatalf("missing zero status bucket: %#v", a.TicketsByStatus)
	}
	if _, ok := a.TicketsByCategory["security"]; !ok {
		t.Fatalf("missing zero category bucket: %#v", a.TicketsByCategory)
	}
	if a.AvgResolutionHours == nil {
		t.Fatalf("expected an average resolution time")
	}
	if len(a.RecentActivity) != 2 {
		t.Fatalf("recent activity unexpected: %+v", a.RecentActivity)
	}
}

func TestGetInsights(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	ref := mustCreate(t, s, TicketCreate{
		Title: "Server down urgent", Description: "production broken, users frustrated",
		Reporter: "alice", Priority: domain.PriorityCritical, Category: domain.CategoryHardware,
	})
	mustCreate(t, s, TicketCreate{Title: "Server down again", Description: "production broken twice", Reporter: "bob"})

	out, err := s.GetInsights(ctx, ref.ID)
	if err != nil {
		t.Fatalf("GetInsights: %v", err)
	}
	if out.Ticket.ID != ref.ID {
		t.Fatalf("wrong ticket attached: %+v", out.Ticket)
	}
	if out.Insights.Summary == "" || out.Insights.ResolutionSuggestion == "" {
		t.Fatalf("insight texts missing: %+v", out.Insights)
	}
	if out.Insights.SentimentAnalysis == nil || out.Insights.SentimentAnalysis.Urgency != "critical" {
		t.Fatalf("sentiment unexpected: %+v", out.Insights.SentimentAnalysis)
	}
	for _, id := range out.Insights.SimilarTicketIDs {
		if id == ref.ID {
			t.Fatalf("similar ids include self: %+v", out.Insights.SimilarTicketIDs)
		}
	}

	if _, err := s.GetInsights(ctx, 999); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("missing ticket should fail, got %v", err)
	}
}

func TestGenerateCollectionInsights(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	mustCreate(t, s, TicketCreate{Title: "a", Description: "d", Reporter: "r", Category: domain.CategoryNetwork})
	mustCreate(t, s, TicketCreate{Title: "b", Description: "d", Reporter: "r", Category: domain.CategoryNetwork})
	mustCreate(t, s, TicketCreate{Title: "c", Description: "d", Reporter: "r", Category: domain.CategorySoftware})

	out, err := s.GenerateCollectionInsights(ctx, "", 50)
	if err != nil {
		t.Fatalf("GenerateCollectionInsights: %v", err)
	}
	if out.AnalyzedTickets != 3 || out.Statistics.CategoryDistribution["network"] != 2 {
		t.Fatalf("insights unexpected: %+v", out)
	}

	scoped, err := s.GenerateCollectionInsights(ctx, domain.CategoryNetwork, 50)
	if err != nil {
		t.Fatalf("scoped insights: %v", err)
	}
	if scoped.AnalyzedTickets != 2 {
		t.Fatalf("category scope ignored: %+v", scoped)
	}

	if _, err := s.GenerateCollectionInsights(ctx, "billing", 50); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("invalid category should fail, got %v", err)
	}
}

func TestRebuildIndex(t *testing.T) {
	s := newTicketService(t)
	ctx := context.Background()

	mustCreate(t, s, TicketCreate{Title: "a", Description: "d", Reporter: "r"})
	mustCreate(t, s, TicketCreate{Title: "b", Description: "d", Reporter: "r"})
	s.Index.Reset()

	n, err := s.RebuildIndex(ctx)
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if n != 2 || s.Index.Stats().TotalDocuments != 2 {
		t.Fatalf("rebuild unexpected: n=%d stats=%+v", n, s.Index.Stats())
	}
}

func ptr[T any](v T) *T { return &v }
