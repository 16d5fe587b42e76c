// Ticket HTTP handlers.
//
// This file exposes REST endpoints for ticket resources:
//   - POST   /tickets        (create)
//   - GET    /tickets        (list, filtered, paginated, ETag support)
//   - GET    /tickets/{id}   (fetch one)
//   - PUT    /tickets/{id}   (partial update)
//   - DELETE /tickets/{id}   (delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-ticket-backend/internal/domain"
	"github.com/tbourn/go-ticket-backend/internal/http/middleware"
	"github.com/tbourn/go-ticket-backend/internal/mcp"
	"github.com/tbourn/go-ticket-backend/internal/repo"
	"github.com/tbourn/go-ticket-backend/internal/search"
	"github.com/tbourn/go-ticket-backend/internal/services"
	"github.com/tbourn/go-ticket-backend/internal/utils"
)

//
// Service contract (context-aware)
//

// TicketAPI defines the ticket lifecycle, search, and insight operations
// consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TicketAPI interface {
	// Create validates and persists a new ticket.
	Create(ctx context.Context, in services.TicketCreate) (*domain.Ticket, error)
	// Get fetches a single ticket by id.
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	// ListPage returns a filtered page of tickets and the matching total.
	ListPage(ctx context.Context, f repo.TicketFilter, page, pageSize int) ([]domain.Ticket, int64, error)
	// Update applies a partial update to an existing ticket.
	Update(ctx context.Context, id int64, in services.TicketUpdate) (*domain.Ticket, error)
	// Delete removes a ticket.
	Delete(ctx context.Context, id int64) error
	// Search runs a ranked keyword query over the index.
	Search(ctx context.Context, query string, filters search.Filters, limit int) (*services.SearchResult, error)
	// Similar returns tickets ranked by similarity to the given one.
	Similar(ctx context.Context, id int64, limit int) ([]domain.Ticket, map[int64]float64, error)
	// GetAnalytics aggregates ticket statistics.
	GetAnalytics(ctx context.Context) (*services.Analytics, error)
	// GetInsights composes the generated insight texts for one ticket.
	GetInsights(ctx context.Context, id int64) (*services.TicketInsights, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for tickets, search, and the tool-calling
// surface. It depends on an abstract service interface to keep transport
// concerns separate from business logic.
type Handlers struct {
	svc TicketAPI
	mcp *mcp.Server
}

// New constructs and returns a Handlers instance bound to the given services.
func New(svc TicketAPI, mcpServer *mcp.Server) *Handlers {
	return &Handlers{svc: svc, mcp: mcpServer}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateTicketRequest is the JSON payload for opening a ticket.
type CreateTicketRequest struct {
	// Title is the short problem statement (required).
	Title string `json:"title" binding:"required" example:"Printer not working"`
	// Description details the problem (required).
	Description string `json:"description" binding:"required" example:"The 3rd floor printer shows error E502"`
	// Priority defaults to "medium" when empty.
	Priority string `json:"priority" example:"high"`
	// Category defaults to "other" when empty.
	Category string `json:"category" example:"hardware"`
	// Assignee optionally assigns the ticket on creation.
	Assignee string `json:"assignee" example:"bob"`
	// Reporter identifies who opened the ticket (required).
	Reporter string `json:"reporter" binding:"required" example:"alice"`
	// Tags are free-form labels.
	Tags []string `json:"tags" example:"printer,floor-3"`
}

// UpdateTicketRequest is the JSON payload for a partial ticket update.
// Absent fields leave the stored value untouched.
type UpdateTicketRequest struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Status          *string  `json:"status,omitempty" example:"resolved"`
	Priority        *string  `json:"priority,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Assignee        *string  `json:"assignee,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ResolutionNotes *string  `json:"resolution_notes,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListTicketsResponse wraps a page of tickets and pagination information.
type ListTicketsResponse struct {
	Tickets    []domain.Ticket `json:"tickets"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ticketID parses the {id} path parameter; a false return means the request
// was already failed with 400.
func ticketID(c *gin.Context) (int64, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ticket id must be a positive integer")
		return 0, false
	}
	return id, true
}

// listFilter builds a repo.TicketFilter from repeatable query parameters.
// Unknown enum values are rejected so typos never read as "no filter".
func listFilter(c *gin.Context) (repo.TicketFilter, error) {
	var f repo.TicketFilter
	for _, v := range c.QueryArray("status") {
		st := domain.Status(strings.ToLower(strings.TrimSpace(v)))
		if !st.Valid() {
			return f, fmt.Errorf("invalid status: %s", v)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, v := range c.QueryArray("priority") {
		p := domain.Priority(strings.ToLower(strings.TrimSpace(v)))
		if !p.Valid() {
			return f, fmt.Errorf("invalid priority: %s", v)
		}
		f.Priorities = append(f.Priorities, p)
	}
	for _, v := range c.QueryArray("category") {
		cat := domain.Category(strings.ToLower(strings.TrimSpace(v)))
		if !cat.Valid() {
			return f, fmt.Errorf("invalid category: %s", v)
		}
		f.Categories = append(f.Categories, cat)
	}
	f.Assignee = strings.TrimSpace(c.Query("assignee"))
	f.Reporter = strings.TrimSpace(c.Query("reporter"))
	return f, nil
}

// svcFail maps a service error to the appropriate HTTP status and code.
// Validation errors become 400, missing resources 404, the rest 500.
func svcFail(c *gin.Context, err error, failCode string) {
	switch {
	case errors.Is(err, services.ErrTicketNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
	case errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrEmptyDescription),
		errors.Is(err, services.ErrEmptyReporter),
		errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrNoFieldsToUpdate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, failCode, err.Error())
	}
}

//
// Handlers
//

// CreateTicket godoc
// @ID          createTicket
// @Summary     Create a new ticket
// @Description Creates a ticket and returns the full resource. Priority defaults to "medium", category to "other", status is always "open".
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"                example(user123)
// @Param       Idempotency-Key  header  string  false "Replay-safe create key"               example(4d1f9aad-21c7-4bb6-9f0e-0cb1a882f3e7)
// @Param       body             body    handlers.CreateTicketRequest  true  "Create ticket payload"
//
// @Success     201  {object}  domain.Ticket
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets [post]
func (h *Handlers) CreateTicket(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	currentUser := userID(c)
	scope := c.FullPath()

	// Idempotency (replay path): return the previously created ticket.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.svc.(*services.TicketService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetTicket(ctx, svc.DB, rec.TicketID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, prev)
					return
				}
			}
		}
	}

	t, err := h.svc.Create(ctx, services.TicketCreate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(req.Priority))),
		Category:    domain.Category(strings.ToLower(strings.TrimSpace(req.Category))),
		Assignee:    req.Assignee,
		Reporter:    req.Reporter,
		Tags:        req.Tags,
	})
	if err != nil {
		svcFail(c, err, ErrCodeCreateFailed)
		return
	}

	// Idempotency (store path): best effort.
	if idemKey != "" {
		if svc, okSvc := h.svc.(*services.TicketService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, scope, idemKey, t.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, t)
}

// ListTickets godoc
// @ID          listTickets
// @Summary     List tickets (filtered, paginated)
// @Description Returns a page of tickets, most recent first. Repeatable status/priority/category filters combine as AND across attributes and OR within one. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tickets
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"tickets:3:1712345678\")
// @Param       status         query   []string false "Filter by status"           collectionFormat(multi)
// @Param       priority       query   []string false "Filter by priority"         collectionFormat(multi)
// @Param       category       query   []string false "Filter by category"         collectionFormat(multi)
// @Param       assignee       query   string   false "Filter by assignee"
// @Param       reporter       query   string   false "Filter by reporter"
// @Param       page           query   int      false "Page number"                minimum(1) default(1)
// @Param       page_size      query   int      false "Items per page"             minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTicketsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets [get]
func (h *Handlers) ListTickets(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	f, err := listFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okAssert := h.svc.(*services.TicketService); okAssert {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.TicketsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"tickets:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.svc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListTicketsResponse{
		Tickets: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetTicket godoc
// @ID          getTicket
// @Summary     Fetch a single ticket
// @Description Returns the full ticket resource by id.
// @Tags        Tickets
// @Produce     json
//
// @Param       id  path  int  true  "Ticket ID"  minimum(1) example(42)
//
// @Success     200  {object} domain.Ticket
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/{id} [get]
func (h *Handlers) GetTicket(c *gin.Context) {
	id, okID := ticketID(c)
	if !okID {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		svcFail(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTicket godoc
// @ID          updateTicket
// @Summary     Update a ticket
// @Description Applies a partial update. Transitioning into resolved or closed stamps the resolution timestamp once.
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                            true  "Ticket ID"  minimum(1) example(42)
// @Param       body  body  handlers.UpdateTicketRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Ticket
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/{id} [put]
func (h *Handlers) UpdateTicket(c *gin.Context) {
	id, okID := ticketID(c)
	if !okID {
		return
	}

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u := services.TicketUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Assignee:        req.Assignee,
		Tags:            req.Tags,
		ResolutionNotes: req.ResolutionNotes,
	}
	if req.Status != nil {
		st := domain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		u.Status = &st
	}
	if req.Priority != nil {
		p := domain.Priority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		u.Priority = &p
	}
	if req.Category != nil {
		cat := domain.Category(strings.ToLower(strings.TrimSpace(*req.Category)))
		u.Category = &cat
	}

	t, err := h.svc.Update(c.Request.Context(), id, u)
	if err != nil {
		svcFail(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTicket godoc
// @ID          deleteTicket
// @Summary     Delete a ticket
// @Description Removes the ticket and drops it from the search index.
// @Tags        Tickets
// @Produce     json
//
// @Param       id  path  int  true  "Ticket ID"  minimum(1) example(42)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/{id} [delete]
func (h *Handlers) DeleteTicket(c *gin.Context) {
	id, okID := ticketID(c)
	if !okID {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		svcFail(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
