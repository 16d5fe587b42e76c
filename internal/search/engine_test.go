package search

import (
	"math"
	"testing"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

func seededEngine(t *testing.T, tickets ...*domain.Ticket) *Engine {
	t.Helper()
	ix := NewIndex()
	for _, tk := range tickets {
		if err := ix.Add(tk); err != nil {
			t.Fatalf("seed Add(%d): %v", tk.ID, err)
		}
	}
	return NewEngine(ix)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// Term score worked example: "server" hits title (3.0), "slow" hits
// description (2.0); 5.0 / (2 * 3.0) = 0.8333, no phrase bonus.
func TestQuery_WeightedTermScore(t *testing.T) {
	e := seededEngine(t, newTicket(1,
		"Server performance issue",
		"users report slow response times on the portal",
		"server", "performance"))

	hits := e.Query("server slow", nil, 10)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != 1 || !approx(hits[0].Score, 5.0/6.0) {
		t.Fatalf("unexpected hit: %+v (want id=1 score=0.8333)", hits[0])
	}
}

func TestQuery_FieldPriorityFirstMatchWins(t *testing.T) {
	// "printer" appears in title, description and tags; only the title
	// weight counts.
	e := seededEngine(t, newTicket(2,
		"printer offline",
		"the printer in room 4 is offline",
		"printer"))

	hits := e.Query("printer", nil, 10)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	// 3.0 / (1 * 3.0) = 1.0
	if !approx(hits[0].Score, 1.0) {
		t.Fatalf("expected saturated title score 1.0, got %v", hits[0].Score)
	}
}

func TestQuery_TagAndFullTextWeights(t *testing.T) {
	e := seededEngine(t, newTicket(3, "login broken", "cannot sign in", "sso", "auth"))

	// "sso" only matches the tags slot: 2.0 / 3.0.
	hits := e.Query("sso", nil, 10)
	if len(hits) != 1 || !approx(hits[0].Score, 2.0/3.0) {
		t.Fatalf("tag-weight hit unexpected: %+v", hits)
	}
}

// Reporter names, enum words, and resolution notes are reachable only through
// the full-text slot, scoring at the lowest weight: 1.0 / 3.0 per term.
func TestQuery_FullTextCoversAttributesAndNotes(t *testing.T) {
	tk := newTicket(7, "login broken", "cannot sign in", "sso")
	tk.Reporter = "carol"
	tk.ResolutionNotes = "rotated the signing certificate"

	e := seededEngine(t, tk)

	hits := e.Query("carol", nil, 10)
	if len(hits) != 1 || !approx(hits[0].Score, 1.0/3.0) {
		t.Fatalf("reporter-name hit unexpected: %+v", hits)
	}

	hits = e.Query("certificate", nil, 10)
	if len(hits) != 1 || !approx(hits[0].Score, 1.0/3.0) {
		t.Fatalf("resolution-note hit unexpected: %+v", hits)
	}

	hits = e.Query("open", nil, 10)
	if len(hits) != 1 || !approx(hits[0].Score, 1.0/3.0) {
		t.Fatalf("status-word hit unexpected: %+v", hits)
	}
}

func TestQuery_PhraseBonuses(t *testing.T) {
	e := seededEngine(t,
		newTicket(10, "database connection timeout", "pool exhausted", "db"),
		newTicket(11, "nightly job failing", "database connection timeout observed at 2am"),
	)

	hits := e.Query("database connection timeout", nil, 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	// Ticket 10: all three terms in title -> 9/9 = 1.0, +0.5 title phrase,
	// clamped to 1.0. Ticket 11: terms in description -> 6/9, +0.3
	// description phrase = 0.9667.
	if hits[0].ID != 10 || !approx(hits[0].Score, 1.0) {
		t.Fatalf("title phrase hit unexpected: %+v", hits[0])
	}
	if hits[1].ID != 11 || !approx(hits[1].Score, 6.0/9.0+0.3) {
		t.Fatalf("description phrase hit unexpected: %+v", hits[1])
	}
}

func TestQuery_ScoreClampedToOne(t *testing.T) {
	e := seededEngine(t, newTicket(4, "vpn down", "vpn down for everyone"))
	for _, h := range e.Query("vpn down", nil, 10) {
		if h.Score > 1.0 {
			t.Fatalf("score above 1.0: %+v", h)
		}
	}
}

func TestQuery_ZeroScoreExcluded(t *testing.T) {
	e := seededEngine(t, newTicket(1, "Server performance issue", "slow response times", "server"))
	if hits := e.Query("quantum", nil, 10); len(hits) != 0 {
		t.Fatalf("non-matching query must return nothing, got %+v", hits)
	}
}

func TestQuery_FilterConjunction(t *testing.T) {
	high := newTicket(1, "server performance issue", "slow responses", "server")
	high.Priority = domain.PriorityHigh
	low := newTicket(2, "server reboot needed", "performance degraded", "server")
	low.Priority = domain.PriorityLow

	e := seededEngine(t, high, low)

	unfiltered := e.Query("performance", nil, 10)
	if len(unfiltered) != 2 {
		t.Fatalf("expected both tickets unfiltered, got %d", len(unfiltered))
	}

	hits := e.Query("performance", Filters{"priority": "high"}, 10)
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Fatalf("priority=high should keep only ticket 1: %+v", hits)
	}

	if hits := e.Query("performance", Filters{"priority": "critical"}, 10); len(hits) != 0 {
		t.Fatalf("non-matching filter must exclude all: %+v", hits)
	}

	// Conjunction across attributes.
	hits = e.Query("performance", Filters{"priority": "high", "status": "open"}, 10)
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Fatalf("AND of filters unexpected: %+v", hits)
	}
	if hits := e.Query("performance", Filters{"priority": "high", "status": "closed"}, 10); len(hits) != 0 {
		t.Fatalf("failing one conjunct must exclude: %+v", hits)
	}
}

func TestQuery_FilterSetMembership(t *testing.T) {
	a := newTicket(1, "disk full", "root volume at 100%")
	a.Status = domain.StatusOpen
	b := newTicket(2, "disk warning", "volume at 85%")
	b.Status = domain.StatusResolved

	e := seededEngine(t, a, b)

	hits := e.Query("disk", Filters{"status": []string{"open", "in_progress"}}, 10)
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Fatalf("set filter unexpected: %+v", hits)
	}
}

// An attribute name the index does not know matches no document.
func TestQuery_UnknownFilterAttributeExcludesAll(t *testing.T) {
	e := seededEngine(t, newTicket(1, "server issue", "slow"))
	if hits := e.Query("server", Filters{"severity": "high"}, 10); len(hits) != 0 {
		t.Fatalf("unknown attribute must exclude everything: %+v", hits)
	}
}

func TestQuery_NilAndEmptyFilterValuesSkipped(t *testing.T) {
	e := seededEngine(t, newTicket(1, "server issue", "slow"))
	hits := e.Query("server", Filters{"priority": nil, "status": ""}, 10)
	if len(hits) != 1 {
		t.Fatalf("nil/empty filter values should be no-ops: %+v", hits)
	}
}

func TestQuery_LimitAndRankOrder(t *testing.T) {
	e := seededEngine(t,
		newTicket(1, "email outage", "smtp relay down"),                 // title hit
		newTicket(2, "user report", "email bounced with smtp error"),    // description hits
		newTicket(3, "misc", "unrelated text", "email"),                 // tag hit
		newTicket(4, "archive", "mentions email once in passing", "ok"), // description hit
	)

	hits := e.Query("email smtp", nil, 2)
	if len(hits) != 2 {
		t.Fatalf("limit not respected: %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("results not non-increasing: %+v", hits)
		}
	}
	if hits[0].ID != 1 {
		t.Fatalf("title match should rank first: %+v", hits)
	}
}

func TestQuery_TiesBrokenByAscendingID(t *testing.T) {
	e := seededEngine(t,
		newTicket(9, "wifi drops", "access point reboots"),
		newTicket(3, "wifi drops", "access point reboots"),
		newTicket(5, "wifi drops", "access point reboots"),
	)
	hits := e.Query("wifi", nil, 10)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != 3 || hits[1].ID != 5 || hits[2].ID != 9 {
		t.Fatalf("ties must order by ascending id: %+v", hits)
	}
}

func TestQuery_EmptyQueryOnlyPhraseChecks(t *testing.T) {
	e := seededEngine(t, newTicket(1, "anything", "whatever"))
	// No terms and an empty phrase: no candidate can score above zero.
	if hits := e.Query("   ", nil, 10); len(hits) != 0 {
		t.Fatalf("whitespace query should return nothing, got %+v", hits)
	}
}

func TestQuery_RemovedTicketNeverReturned(t *testing.T) {
	ix := NewIndex()
	if err := ix.Add(newTicket(5, "flaky switch", "port 12 flapping", "network")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ix.Remove(5)
	e := NewEngine(ix)
	if hits := e.Query("flaky switch", nil, 10); len(hits) != 0 {
		t.Fatalf("removed id must not appear: %+v", hits)
	}
}

func TestSimilar_ExcludesSelf(t *testing.T) {
	ref := newTicket(1, "server performance issue", "slow response times on portal", "server")
	e := seededEngine(t,
		ref,
		newTicket(2, "server performance degraded", "response times rising", "server"),
		newTicket(3, "portal slow", "server response issue reported"),
		newTicket(4, "unrelated hr question", "badge printer"),
	)

	hits := e.Similar(ref, 3)
	if len(hits) == 0 {
		t.Fatalf("expected similar hits")
	}
	if len(hits) > 3 {
		t.Fatalf("limit not respected: %d", len(hits))
	}
	for _, h := range hits {
		if h.ID == ref.ID {
			t.Fatalf("similar returned the reference ticket itself: %+v", hits)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("similar results not ranked: %+v", hits)
		}
	}
}

func TestSimilar_NilTicketAndBadLimit(t *testing.T) {
	e := seededEngine(t, newTicket(1, "a", "b"))
	if hits := e.Similar(nil, 3); hits != nil {
		t.Fatalf("nil ticket should yield nil, got %+v", hits)
	}
	if hits := e.Similar(newTicket(1, "a", "b"), 0); hits != nil {
		t.Fatalf("non-positive limit should yield nil, got %+v", hits)
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	e := NewEngine(NewIndex())
	if hits := e.Query("anything", nil, 5); len(hits) != 0 {
		t.Fatalf("empty index must return nothing, got %+v", hits)
	}
}
