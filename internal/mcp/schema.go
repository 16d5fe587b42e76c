package mcp

// toolSpecs returns the static schema table published by /mcp/info and
// /mcp/tools. Enum values mirror the domain enums.
func toolSpecs() []Tool {
	priorities := []string{"low", "medium", "high", "critical"}
	categories := []string{"hardware", "software", "network", "access", "performance", "security", "other"}
	statuses := []string{"open", "in_progress", "pending", "resolved", "closed"}

	return []Tool{
		{
			Name:        "create_ticket",
			Description: "Create a new incident ticket",
			Parameters: map[string]ToolParameter{
				"title":       {Type: "string", Description: "Ticket title", Required: true},
				"description": {Type: "string", Description: "Detailed description", Required: true},
				"priority":    {Type: "string", Description: "Priority level", Required: false, Enum: priorities},
				"category":    {Type: "string", Description: "Issue category", Required: false, Enum: categories},
				"assignee":    {Type: "string", Description: "Assigned user", Required: false},
				"reporter":    {Type: "string", Description: "Reporting user", Required: true},
				"tags":        {Type: "array", Description: "Tags list", Required: false},
			},
		},
		{
			Name:        "list_tickets",
			Description: "List tickets with optional filtering",
			Parameters: map[string]ToolParameter{
				"status":   {Type: "array", Description: "Filter by status", Required: false, Enum: statuses},
				"priority": {Type: "array", Description: "Filter by priority", Required: false, Enum: priorities},
				"category": {Type: "array", Description: "Filter by category", Required: false, Enum: categories},
				"assignee": {Type: "string", Description: "Filter by assignee", Required: false},
				"reporter": {Type: "string", Description: "Filter by reporter", Required: false},
				"limit":    {Type: "integer", Description: "Maximum results", Required: false},
			},
		},
		{
			Name:        "get_ticket",
			Description: "Get detailed ticket information",
			Parameters: map[string]ToolParameter{
				"ticket_id":           {Type: "integer", Description: "Ticket ID", Required: true},
				"include_ai_insights": {Type: "boolean", Description: "Include generated insights", Required: false},
			},
		},
		{
			Name:        "update_ticket",
			Description: "Update an existing ticket",
			Parameters: map[string]ToolParameter{
				"ticket_id":        {Type: "integer", Description: "Ticket ID", Required: true},
				"title":            {Type: "string", Description: "New title", Required: false},
				"description":      {Type: "string", Description: "New description", Required: false},
				"status":           {Type: "string", Description: "New status", Required: false, Enum: statuses},
				"priority":         {Type: "string", Description: "New priority", Required: false, Enum: priorities},
				"category":         {Type: "string", Description: "New category", Required: false, Enum: categories},
				"assignee":         {Type: "string", Description: "New assignee", Required: false},
				"resolution_notes": {Type: "string", Description: "Resolution notes", Required: false},
				"tags":             {Type: "array", Description: "New tags", Required: false},
			},
		},
		{
			Name:        "search_tickets",
			Description: "Search tickets using ranked keyword matching",
			Parameters: map[string]ToolParameter{
				"query":    {Type: "string", Description: "Search query", Required: true},
				"limit":    {Type: "integer", Description: "Maximum results", Required: false},
				"status":   {Type: "array", Description: "Filter by status", Required: false, Enum: statuses},
				"priority": {Type: "array", Description: "Filter by priority", Required: false, Enum: priorities},
				"category": {Type: "array", Description: "Filter by category", Required: false, Enum: categories},
			},
		},
		{
			Name:        "get_ticket_analytics",
			Description: "Get ticket statistics and analytics",
			Parameters:  map[string]ToolParameter{},
		},
		{
			Name:        "generate_ticket_insights",
			Description: "Generate rule-based insights from ticket data",
			Parameters: map[string]ToolParameter{
				"ticket_ids": {Type: "array", Description: "Specific ticket IDs", Required: false},
				"limit":      {Type: "integer", Description: "Number of tickets to analyze", Required: false},
			},
		},
	}
}
