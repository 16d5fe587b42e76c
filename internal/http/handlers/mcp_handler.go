// Tool-calling (MCP) HTTP handlers.
//
// This file exposes the tool-calling surface over HTTP:
//   - GET  /mcp/info       (server descriptor, schemas included)
//   - GET  /mcp/tools      (tool schemas)
//   - GET  /mcp/prompts    (prompt templates)
//   - POST /mcp/call_tool  (dispatch one tool call)
//   - GET  /mcp/health     (liveness of the tool-calling surface)
//
// Tool failures are reported inside the envelope with HTTP 200; non-2xx is
// reserved for malformed requests and transport problems.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ticket-backend/internal/mcp"
)

// ToolCallRequest is the JSON payload for dispatching one tool call.
type ToolCallRequest struct {
	// ToolName selects the registered tool (required).
	ToolName string `json:"tool_name" binding:"required" example:"search_tickets"`
	// Parameters are passed to the tool as-is.
	Parameters map[string]any `json:"parameters"`
}

// ToolCallResponse wraps the tool result with timing metadata.
type ToolCallResponse struct {
	ToolName        string         `json:"tool_name"`
	Result          mcp.ToolResult `json:"result"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
}

// MCPHealthResponse reports the liveness of the tool-calling surface.
type MCPHealthResponse struct {
	Status         string `json:"status"`
	Server         string `json:"server"`
	Version        string `json:"version"`
	ToolsAvailable int    `json:"tools_available"`
}

// MCPInfo godoc
// @ID          mcpInfo
// @Summary     Tool server descriptor
// @Description Returns the server name, version, capabilities, tool schemas, and prompt templates.
// @Tags        MCP
// @Produce     json
//
// @Success     200  {object} mcp.ServerInfo
// @Router      /mcp/info [get]
func (h *Handlers) MCPInfo(c *gin.Context) {
	ok(c, http.StatusOK, h.mcp.Info())
}

// MCPTools godoc
// @ID          mcpTools
// @Summary     List tool schemas
// @Description Returns the published schema of every registered tool.
// @Tags        MCP
// @Produce     json
//
// @Success     200  {object} map[string]any
// @Router      /mcp/tools [get]
func (h *Handlers) MCPTools(c *gin.Context) {
	tools := h.mcp.Tools()
	ok(c, http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

// MCPPrompts godoc
// @ID          mcpPrompts
// @Summary     List prompt templates
// @Description Returns the published prompt templates.
// @Tags        MCP
// @Produce     json
//
// @Success     200  {object} map[string]any
// @Router      /mcp/prompts [get]
func (h *Handlers) MCPPrompts(c *gin.Context) {
	prompts := h.mcp.Prompts()
	ok(c, http.StatusOK, gin.H{"prompts": prompts, "count": len(prompts)})
}

// MCPCallTool godoc
// @ID          mcpCallTool
// @Summary     Dispatch a tool call
// @Description Dispatches one named tool call. Tool-level failures come back inside the result envelope with HTTP 200; only malformed requests produce non-2xx.
// @Tags        MCP
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ToolCallRequest  true  "Tool call payload"
//
// @Success     200  {object} handlers.ToolCallResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /mcp/call_tool [post]
func (h *Handlers) MCPCallTool(c *gin.Context) {
	var req ToolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ToolName) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tool_name required")
		return
	}

	start := time.Now()
	result := h.mcp.CallTool(c.Request.Context(), req.ToolName, req.Parameters)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	ok(c, http.StatusOK, ToolCallResponse{
		ToolName:        req.ToolName,
		Result:          result,
		ExecutionTimeMS: elapsed,
	})
}

// MCPHealth godoc
// @ID          mcpHealth
// @Summary     Tool server health
// @Description Reports liveness of the tool-calling surface and the number of registered tools.
// @Tags        MCP
// @Produce     json
//
// @Success     200  {object} handlers.MCPHealthResponse
// @Router      /mcp/health [get]
func (h *Handlers) MCPHealth(c *gin.Context) {
	ok(c, http.StatusOK, MCPHealthResponse{
		Status:         "healthy",
		Server:         h.mcp.Name,
		Version:        h.mcp.Version,
		ToolsAvailable: len(h.mcp.Tools()),
	})
}
