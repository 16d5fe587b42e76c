// Package mcp implements the tool-calling surface of the service: a static
// registry of named tools dispatched by name, each wrapping a TicketService
// operation and returning a uniform result envelope. There is no reflection;
// every tool is registered explicitly in NewServer and described by a typed
// schema served from /mcp/info and /mcp/tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/go-ticket-backend/internal/domain"
	"github.com/tbourn/go-ticket-backend/internal/repo"
	"github.com/tbourn/go-ticket-backend/internal/search"
	"github.com/tbourn/go-ticket-backend/internal/services"
)

const listDescriptionPreview = 200

// ToolParameter describes one parameter of a tool schema.
type ToolParameter struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Tool is the published schema of a registered tool.
type Tool struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ToolParameter `json:"parameters"`
}

// Prompt is a published prompt template descriptor.
type Prompt struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Arguments   map[string]ToolParameter `json:"arguments"`
}

// ServerInfo describes the server and its capabilities.
type ServerInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
	Prompts      []Prompt `json:"prompts"`
}

// ToolResult is the uniform envelope every tool returns. Success is always
// present; the remaining fields are set per tool.
type ToolResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	Data         any      `json:"data,omitempty"`
	Tickets      []any    `json:"tickets,omitempty"`
	TotalCount   *int     `json:"total_count,omitempty"`
	SearchTimeMS *float64 `json:"search_time_ms,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func failure(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

type toolFunc func(ctx context.Context, params map[string]any) ToolResult

// Server dispatches tool calls against a TicketService.
type Server struct {
	Name    string
	Version string

	svc   *services.TicketService
	tools map[string]toolFunc
	specs []Tool
}

// NewServer builds the registry. Tool names are stable identifiers; adding a
// tool means adding both a handler and a schema entry here.
func NewServer(name, version string, svc *services.TicketService) *Server {
	s := &Server{Name: name, Version: version, svc: svc}
	s.tools = map[string]toolFunc{
		"create_ticket":            s.createTicket,
		"list_tickets":             s.listTickets,
		"get_ticket":               s.getTicket,
		"update_ticket":            s.updateTicket,
		"search_tickets":           s.searchTickets,
		"get_ticket_analytics":     s.getTicketAnalytics,
		"generate_ticket_insights": s.generateTicketInsights,
	}
	s.specs = toolSpecs()
	return s
}

// CallTool dispatches by name. Unknown names produce a failed envelope, not
// an error; transport layers always get something serializable.
func (s *Server) CallTool(ctx context.Context, name string, params map[string]any) ToolResult {
	fn, ok := s.tools[name]
	if !ok {
		return failure("Tool '%s' not found", name)
	}
	return fn(ctx, params)
}

// Tools returns the published tool schemas.
func (s *Server) Tools() []Tool { return s.specs }

// Info returns the server descriptor.
func (s *Server) Info() ServerInfo {
	return ServerInfo{
		Name:        s.Name,
		Version:     s.Version,
		Description: "Ticketing system with ranked keyword search and tool-calling support",
		Capabilities: []string{
			"tools",
			"prompts",
			"resources",
			"semantic_search",
			"ai_insights",
		},
		Tools:   s.specs,
		Prompts: s.Prompts(),
	}
}

// Prompts returns the published prompt templates.
func (s *Server) Prompts() []Prompt {
	return []Prompt{
		{
			Name:        "ticket_analysis",
			Description: "Analyze ticket patterns and suggest improvements",
			Arguments: map[string]ToolParameter{
				"time_period": {Type: "string", Description: "Analysis time period (e.g., '7d', '30d', '90d')", Required: false},
			},
		},
		{
			Name:        "resolution_guide",
			Description: "Generate resolution guidance for specific ticket types",
			Arguments: map[string]ToolParameter{
				"category": {Type: "string", Description: "Ticket category to generate guidance for", Required: true},
			},
		},
	}
}

// --- tool handlers ---

func (s *Server) createTicket(ctx context.Context, p map[string]any) ToolResult {
	priority := domain.Priority(strings.ToLower(paramString(p, "priority", string(domain.PriorityMedium))))
	if !priority.Valid() {
		return failure("Invalid priority: %s. Must be one of: %v", paramString(p, "priority", ""), domain.Priorities())
	}
	category := domain.Category(strings.ToLower(paramString(p, "category", string(domain.CategoryOther))))
	if !category.Valid() {
		return failure("Invalid category: %s. Must be one of: %v", paramString(p, "category", ""), domain.Categories())
	}

	t, err := s.svc.Create(ctx, services.TicketCreate{
		Title:       paramString(p, "title", ""),
		Description: paramString(p, "description", ""),
		Priority:    priority,
		Category:    category,
		Assignee:    paramString(p, "assignee", ""),
		Reporter:    paramString(p, "reporter", ""),
		Tags:        paramStringSlice(p, "tags"),
	})
	if err != nil {
		return failure("%s", err)
	}
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Ticket created successfully with ID %d", t.ID),
		Data: map[string]any{
			"ticket_id":  t.ID,
			"title":      t.Title,
			"status":     t.Status,
			"created_at": t.CreatedAt,
		},
	}
}

func (s *Server) listTickets(ctx context.Context, p map[string]any) ToolResult {
	var f repo.TicketFilter
	for _, v := range paramStringSlice(p, "status") {
		st := domain.Status(strings.ToLower(v))
		if !st.Valid() {
			return failure("Invalid status value: %s", v)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, v := range paramStringSlice(p, "priority") {
		pr := domain.Priority(strings.ToLower(v))
		if !pr.Valid() {
			return failure("Invalid priority value: %s", v)
		}
		f.Priorities = append(f.Priorities, pr)
	}
	for _, v := range paramStringSlice(p, "category") {
		c := domain.Category(strings.ToLower(v))
		if !c.Valid() {
			return failure("Invalid category value: %s", v)
		}
		f.Categories = append(f.Categories, c)
	}
	f.Assignee = paramString(p, "assignee", "")
	f.Reporter = paramString(p, "reporter", "")

	limit := paramInt(p, "limit", 10)
	tickets, _, err := s.svc.ListPage(ctx, f, 1, limit)
	if err != nil {
		r := failure("%s", err)
		r.Tickets = []any{}
		r.TotalCount = ptr(0)
		return r
	}

	rows := make([]any, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": previewText(t.Description),
			"status":      t.Status,
			"priority":    t.Priority,
			"category":    t.Category,
			"assignee":    t.Assignee,
			"reporter":    t.Reporter,
			"created_at":  t.CreatedAt,
			"tags":        t.Tags,
		})
	}
	return ToolResult{
		Success:    true,
		Message:    fmt.Sprintf("Found %d tickets", len(tickets)),
		Tickets:    rows,
		TotalCount: ptr(len(tickets)),
	}
}

func (s *Server) getTicket(ctx context.Context, p map[string]any) ToolResult {
	id, ok := paramInt64(p, "ticket_id")
	if !ok {
		return failure("ticket_id is required")
	}

	if paramBool(p, "include_ai_insights", false) {
		out, err := s.svc.GetInsights(ctx, id)
		if err != nil {
			if err == services.ErrTicketNotFound {
				return failure("Ticket %d not found", id)
			}
			return failure("%s", err)
		}
		return ToolResult{
			Success: true,
			Message: fmt.Sprintf("Retrieved ticket %d with AI insights", id),
			Data:    out,
		}
	}

	t, err := s.svc.Get(ctx, id)
	if err != nil {
		if err == services.ErrTicketNotFound {
			return failure("Ticket %d not found", id)
		}
		return failure("%s", err)
	}
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Retrieved ticket %d", id),
		Data:    t,
	}
}

func (s *Server) updateTicket(ctx context.Context, p map[string]any) ToolResult {
	id, ok := paramInt64(p, "ticket_id")
	if !ok {
		return failure("ticket_id is required")
	}

	var u services.TicketUpdate
	if v, ok := p["title"].(string); ok {
		u.Title = &v
	}
	if v, ok := p["description"].(string); ok {
		u.Description = &v
	}
	if v, ok := p["status"].(string); ok {
		st := domain.Status(strings.ToLower(v))
		if !st.Valid() {
			return failure("Invalid status: %s", v)
		}
		u.Status = &st
	}
	if v, ok := p["priority"].(string); ok {
		pr := domain.Priority(strings.ToLower(v))
		if !pr.Valid() {
			return failure("Invalid priority: %s", v)
		}
		u.Priority = &pr
	}
	if v, ok := p["category"].(string); ok {
		c := domain.Category(strings.ToLower(v))
		if !c.Valid() {
			return failure("Invalid category: %s", v)
		}
		u.Category = &c
	}
	if v, ok := p["assignee"].(string); ok {
		u.Assignee = &v
	}
	if v, ok := p["resolution_notes"].(string); ok {
		u.ResolutionNotes = &v
	}
	if _, ok := p["tags"]; ok {
		u.Tags = paramStringSlice(p, "tags")
	}

	t, err := s.svc.Update(ctx, id, u)
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			return failure("Ticket %d not found", id)
		case services.ErrNoFieldsToUpdate:
			return failure("No fields to update provided")
		default:
			return failure("%s", err)
		}
	}
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Ticket %d updated successfully", id),
		Data: map[string]any{
			"id":         t.ID,
			"title":      t.Title,
			"status":     t.Status,
			"updated_at": t.UpdatedAt,
		},
	}
}

func (s *Server) searchTickets(ctx context.Context, p map[string]any) ToolResult {
	query := paramString(p, "query", "")
	limit := paramInt(p, "limit", 10)

	res, err := s.svc.Search(ctx, query, filtersFromParams(p), limit)
	if err != nil {
		r := failure("%s", err)
		r.Tickets = []any{}
		r.TotalCount = ptr(0)
		return r
	}

	rows := make([]any, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		rows = append(rows, map[string]any{
			"id":               t.ID,
			"title":            t.Title,
			"description":      previewText(t.Description),
			"status":           t.Status,
			"priority":         t.Priority,
			"category":         t.Category,
			"similarity_score": res.SimilarityScores[t.ID],
		})
	}
	return ToolResult{
		Success:      true,
		Message:      fmt.Sprintf("Found %d tickets matching '%s'", len(rows), query),
		Tickets:      rows,
		TotalCount:   ptr(res.TotalCount),
		SearchTimeMS: &res.SearchTimeMillis,
	}
}

func (s *Server) getTicketAnalytics(ctx context.Context, _ map[string]any) ToolResult {
	a, err := s.svc.GetAnalytics(ctx)
	if err != nil {
		return failure("%s", err)
	}
	return ToolResult{
		Success: true,
		Message: "Analytics retrieved successfully",
		Data:    a,
	}
}

func (s *Server) generateTicketInsights(ctx context.Context, p map[string]any) ToolResult {
	var tickets []domain.Ticket
	if ids := paramInt64Slice(p, "ticket_ids"); len(ids) > 0 {
		for _, id := range ids {
			if t, err := s.svc.Get(ctx, id); err == nil {
				tickets = append(tickets, *t)
			}
		}
	} else {
		limit := paramInt(p, "limit", 50)
		var err error
		tickets, _, err = s.svc.ListPage(ctx, repo.TicketFilter{}, 1, limit)
		if err != nil {
			return failure("%s", err)
		}
	}
	if len(tickets) == 0 {
		return failure("No tickets found for analysis")
	}

	insights := s.svc.Insights.CollectionInsights(tickets)
	if insights == nil {
		return failure("Unable to generate insights")
	}
	return ToolResult{
		Success: true,
		Message: fmt.Sprintf("Generated insights for %d tickets", len(tickets)),
		Data:    insights,
	}
}

// filtersFromParams lifts optional attribute filters out of a search call.
func filtersFromParams(p map[string]any) search.Filters {
	f := search.Filters{}
	for _, attr := range []string{"status", "priority", "category", "assignee", "reporter"} {
		if v, ok := p[attr]; ok && v != nil {
			f[attr] = v
		}
	}
	if len(f) == 0 {
		return nil
	}
	return f
}

func previewText(s string) string {
	if len(s) > listDescriptionPreview {
		return s[:listDescriptionPreview] + "..."
	}
	return s
}

func ptr[T any](v T) *T { return &v }
