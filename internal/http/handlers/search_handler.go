// Search, analytics, and insight HTTP handlers.
//
// This file exposes the ranked keyword search endpoint plus the derived
// read-only views built on top of the ticket store:
//   - POST /tickets/search             (ranked keyword search)
//   - GET  /tickets/{id}/similar       (related tickets)
//   - GET  /tickets/{id}/insights      (generated per-ticket insights)
//   - GET  /tickets/analytics/summary  (aggregate statistics)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ticket-backend/internal/domain"
	"github.com/tbourn/go-ticket-backend/internal/search"
	"github.com/tbourn/go-ticket-backend/internal/utils"
)

// SearchTicketsRequest is the JSON payload for a ranked search.
type SearchTicketsRequest struct {
	// Query is the whitespace-separated keyword query (required).
	Query string `json:"query" binding:"required" example:"server slow"`
	// Limit caps the number of results; the server applies its own maximum.
	Limit int `json:"limit" example:"10"`
	// Optional attribute filters; within one attribute values combine as OR.
	Status   []string `json:"status,omitempty"`
	Priority []string `json:"priority,omitempty"`
	Category []string `json:"category,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Reporter string   `json:"reporter,omitempty"`
}

// SimilarTicketsResponse wraps the related tickets for one ticket.
type SimilarTicketsResponse struct {
	TicketID         int64             `json:"ticket_id"`
	SimilarTickets   []domain.Ticket   `json:"similar_tickets"`
	SimilarityScores map[int64]float64 `json:"similarity_scores"`
}

// searchFilters lifts the optional attribute filters out of a search request.
// Empty values are omitted so they do not constrain the match.
func searchFilters(req SearchTicketsRequest) search.Filters {
	f := search.Filters{}
	if len(req.Status) > 0 {
		f["status"] = req.Status
	}
	if len(req.Priority) > 0 {
		f["priority"] = req.Priority
	}
	if len(req.Category) > 0 {
		f["category"] = req.Category
	}
	if req.Assignee != "" {
		f["assignee"] = req.Assignee
	}
	if req.Reporter != "" {
		f["reporter"] = req.Reporter
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

// SearchTickets godoc
// @ID          searchTickets
// @Summary     Search tickets
// @Description Runs a ranked keyword search over the in-memory index and returns matching tickets in rank order with their scores.
// @Tags        Search
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SearchTicketsRequest  true  "Search payload"
//
// @Success     200  {object} services.SearchResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/search [post]
func (h *Handlers) SearchTickets(c *gin.Context) {
	var req SearchTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.Search(c.Request.Context(), req.Query, searchFilters(req), req.Limit)
	if err != nil {
		svcFail(c, err, ErrCodeSearchFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// SimilarTickets godoc
// @ID          similarTickets
// @Summary     Find similar tickets
// @Description Returns tickets ranked by keyword similarity to the given ticket, excluding the ticket itself.
// @Tags        Search
// @Produce     json
//
// @Param       id     path   int  true   "Ticket ID"        minimum(1) example(42)
// @Param       limit  query  int  false  "Maximum results"  minimum(1) default(10)
//
// @Success     200  {object} handlers.SimilarTicketsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/{id}/similar [get]
func (h *Handlers) SimilarTickets(c *gin.Context) {
	id, okID := ticketID(c)
	if !okID {
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), 10)

	tickets, scores, err := h.svc.Similar(c.Request.Context(), id, limit)
	if err != nil {
		svcFail(c, err, ErrCodeSearchFailed)
		return
	}
	ok(c, http.StatusOK, SimilarTicketsResponse{
		TicketID:         id,
		SimilarTickets:   tickets,
		SimilarityScores: scores,
	})
}

// TicketInsights godoc
// @ID          ticketInsights
// @Summary     Generated insights for a ticket
// @Description Returns the ticket together with its rule-generated summary, resolution suggestion, sentiment analysis, and similar ticket ids.
// @Tags        Insights
// @Produce     json
//
// @Param       id  path  int  true  "Ticket ID"  minimum(1) example(42)
//
// @Success     200  {object} services.TicketInsights
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Ticket not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/{id}/insights [get]
func (h *Handlers) TicketInsights(c *gin.Context) {
	id, okID := ticketID(c)
	if !okID {
		return
	}
	out, err := h.svc.GetInsights(c.Request.Context(), id)
	if err != nil {
		svcFail(c, err, ErrCodeInsightsFailed)
		return
	}
	ok(c, http.StatusOK, out)
}

// AnalyticsSummary godoc
// @ID          analyticsSummary
// @Summary     Ticket analytics summary
// @Description Returns ticket totals, per-attribute distributions, average resolution time, and recent activity.
// @Tags        Analytics
// @Produce     json
//
// @Success     200  {object} services.Analytics
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets/analytics/summary [get]
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	out, err := h.svc.GetAnalytics(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeAnalyticsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, out)
}
