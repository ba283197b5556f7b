package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/takahara/redmine-issues-mcp/internal/export"
	"github.com/takahara/redmine-issues-mcp/internal/format"
	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

// defaultInclude is what issues_get expands unless the caller overrides it
const defaultInclude = "journals,relations,attachments"

// ToolHandlers contains all MCP tool handlers
type ToolHandlers struct {
	client   *redmine.Client
	logger   *slog.Logger
	readOnly bool
}

// NewToolHandlers creates new tool handlers
func NewToolHandlers(client *redmine.Client) *ToolHandlers {
	readOnly := os.Getenv("REDMINE_MCP_READ_ONLY") == "true"
	if readOnly {
		slog.Info("read-only mode enabled - all write operations will be blocked")
	}
	return &ToolHandlers{
		client:   client,
		logger:   slog.Default(),
		readOnly: readOnly,
	}
}

// checkReadOnly returns an error if the server is in read-only mode.
func (h *ToolHandlers) checkReadOnly() error {
	if h.readOnly {
		return fmt.Errorf("server is in read-only mode - write operations are disabled")
	}
	return nil
}

// formatOpts are the formatting parameters shared by the read tools
func formatOpts() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("detail_level",
			mcp.Description("Output detail: 'full' (default) or 'brief'"),
			mcp.Enum("full", "brief"),
		),
		mcp.WithString("brief_fields",
			mcp.Description(`JSON object selecting brief-mode field groups, e.g. {"assignee":true,"description":"truncated","custom_fields":["Severity"]}`),
		),
		mcp.WithNumber("max_description_length",
			mcp.Description("Truncation limit for brief descriptions (50-1000, default 200)"),
		),
		mcp.WithNumber("max_journal_entries",
			mcp.Description("Number of most recent journal entries to keep in brief mode (0-10, default 3)"),
		),
	}
}

// RegisterTools registers all MCP tools on the server
func (h *ToolHandlers) RegisterTools(s McpServer) {
	filterOpts := []mcp.ToolOption{
		mcp.WithString("project_id",
			mcp.Description("Project ID or identifier"),
		),
		mcp.WithString("issue_id",
			mcp.Description("Issue ID or comma-separated list of IDs"),
		),
		mcp.WithString("subproject_id",
			mcp.Description("Subproject filter (e.g. '!*' to exclude subprojects)"),
		),
		mcp.WithNumber("tracker_id",
			mcp.Description("Tracker ID"),
		),
		mcp.WithNumber("parent_id",
			mcp.Description("Parent issue ID (find subtasks)"),
		),
		mcp.WithString("status_id",
			mcp.Description("Status ID, or one of 'open', 'closed', '*'"),
		),
		mcp.WithString("assigned_to_id",
			mcp.Description("Assignee user ID, or 'me' for the current user"),
		),
		mcp.WithString("created_on",
			mcp.Description("Creation date filter (e.g. '>=2024-01-01')"),
		),
		mcp.WithString("updated_on",
			mcp.Description("Update date filter (e.g. '>=2024-01-01')"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort order (e.g. 'updated_on:desc')"),
		),
		mcp.WithString("include",
			mcp.Description("Associations to expand (comma-separated)"),
		),
		mcp.WithString("subject_filter",
			mcp.Description("Free text that issue subjects must contain"),
		),
		mcp.WithString("description_filter",
			mcp.Description("Free text that issue descriptions must contain"),
		),
		mcp.WithString("notes_filter",
			mcp.Description("Free text that issue notes must contain"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of issues to return (default: 25)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Offset for pagination (default: 0)"),
		),
	}

	listOpts := []mcp.ToolOption{
		mcp.WithDescription("List issues as XML. Supports Redmine filters, free-text filters, and brief output."),
	}
	listOpts = append(listOpts, filterOpts...)
	listOpts = append(listOpts, formatOpts()...)
	s.AddTool(mcp.NewTool("issues_list", listOpts...), h.handleIssuesList)

	getOpts := []mcp.ToolOption{
		mcp.WithDescription("Get one issue as XML, including journals, relations, and attachments"),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("Issue ID"),
		),
		mcp.WithString("include",
			mcp.Description("Associations to expand (default: journals,relations,attachments)"),
		),
	}
	getOpts = append(getOpts, formatOpts()...)
	s.AddTool(mcp.NewTool("issues_get", getOpts...), h.handleIssuesGet)

	s.AddTool(mcp.NewTool("issues_create",
		mcp.WithDescription("Create a new issue"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Issue subject/title"),
		),
		mcp.WithNumber("tracker_id",
			mcp.Description("Tracker ID"),
		),
		mcp.WithString("description",
			mcp.Description("Issue description"),
		),
		mcp.WithNumber("status_id",
			mcp.Description("Status ID"),
		),
		mcp.WithNumber("priority_id",
			mcp.Description("Priority ID"),
		),
		mcp.WithNumber("assigned_to_id",
			mcp.Description("Assignee user ID"),
		),
		mcp.WithNumber("category_id",
			mcp.Description("Issue category ID"),
		),
		mcp.WithNumber("fixed_version_id",
			mcp.Description("Target version ID"),
		),
		mcp.WithNumber("parent_issue_id",
			mcp.Description("Parent issue ID"),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date (YYYY-MM-DD)"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("done_ratio",
			mcp.Description("Progress percentage (0-100)"),
		),
		mcp.WithObject("custom_fields",
			mcp.Description("Custom field values keyed by field ID (e.g. {\"12\": \"High\"})"),
		),
	), h.handleIssuesCreate)

	s.AddTool(mcp.NewTool("issues_update",
		mcp.WithDescription("Update an existing issue"),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("Issue ID"),
		),
		mcp.WithString("subject",
			mcp.Description("New subject/title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithNumber("status_id",
			mcp.Description("New status ID"),
		),
		mcp.WithNumber("priority_id",
			mcp.Description("New priority ID"),
		),
		mcp.WithNumber("tracker_id",
			mcp.Description("New tracker ID"),
		),
		mcp.WithNumber("assigned_to_id",
			mcp.Description("New assignee user ID"),
		),
		mcp.WithNumber("category_id",
			mcp.Description("New issue category ID"),
		),
		mcp.WithNumber("fixed_version_id",
			mcp.Description("New target version ID"),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date (YYYY-MM-DD)"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("done_ratio",
			mcp.Description("Progress percentage (0-100)"),
		),
		mcp.WithString("notes",
			mcp.Description("Notes/comment to add"),
		),
		mcp.WithObject("custom_fields",
			mcp.Description("Custom field values keyed by field ID"),
		),
	), h.handleIssuesUpdate)

	exportOpts := []mcp.ToolOption{
		mcp.WithDescription("Export issues as an XLSX workbook (base64). Same filters as issues_list."),
	}
	exportOpts = append(exportOpts, filterOpts...)
	s.AddTool(mcp.NewTool("issues_export", exportOpts...), h.handleIssuesExport)
}

// McpServer interface for registering tools
type McpServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// Handler implementations

func (h *ToolHandlers) handleIssuesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := buildIssueQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := h.client.ListIssues(query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list issues: %v", err)), nil
	}

	opts := format.ParseOptions(req.GetArguments(), h.logger)
	return mcp.NewToolResultText(format.FormatIssues(resp, &opts)), nil
}

func (h *ToolHandlers) handleIssuesGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueIDFloat, err := req.RequireFloat("issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issueID := int(issueIDFloat)

	include := req.GetString("include", defaultInclude)

	issue, err := h.client.GetIssue(issueID, include)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get issue: %v", err)), nil
	}

	opts := format.ParseOptions(req.GetArguments(), h.logger)
	return mcp.NewToolResultText(format.FormatIssue(*issue, &opts)), nil
}

func (h *ToolHandlers) handleIssuesCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	projectID, err := requireIntArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	subject, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := redmine.CreateIssueParams{
		ProjectID:     projectID,
		TrackerID:     req.GetInt("tracker_id", 0),
		Subject:       subject,
		Description:   req.GetString("description", ""),
		StatusID:      req.GetInt("status_id", 0),
		PriorityID:    req.GetInt("priority_id", 0),
		AssignedToID:  req.GetInt("assigned_to_id", 0),
		CategoryID:    req.GetInt("category_id", 0),
		VersionID:     req.GetInt("fixed_version_id", 0),
		ParentIssueID: req.GetInt("parent_issue_id", 0),
		StartDate:     req.GetString("start_date", ""),
		DueDate:       req.GetString("due_date", ""),
		DoneRatio:     req.GetInt("done_ratio", 0),
		CustomFields:  getMapArg(req, "custom_fields"),
	}

	issue, err := h.client.CreateIssue(params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create issue: %v", err)), nil
	}

	return mcp.NewToolResultText(format.FormatIssue(*issue, nil)), nil
}

func (h *ToolHandlers) handleIssuesUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issueID, err := requireIntArg(req, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := redmine.UpdateIssueParams{
		Subject:      req.GetString("subject", ""),
		Description:  req.GetString("description", ""),
		StatusID:     req.GetInt("status_id", 0),
		PriorityID:   req.GetInt("priority_id", 0),
		TrackerID:    req.GetInt("tracker_id", 0),
		AssignedToID: req.GetInt("assigned_to_id", 0),
		CategoryID:   req.GetInt("category_id", 0),
		VersionID:    req.GetInt("fixed_version_id", 0),
		StartDate:    req.GetString("start_date", ""),
		DueDate:      req.GetString("due_date", ""),
		DoneRatio:    req.GetInt("done_ratio", 0),
		Notes:        req.GetString("notes", ""),
		CustomFields: getMapArg(req, "custom_fields"),
	}

	if err := h.client.UpdateIssue(issueID, params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update issue: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Issue #%d updated", issueID)), nil
}

func (h *ToolHandlers) handleIssuesExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := buildIssueQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := h.client.ListIssues(query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list issues: %v", err)), nil
	}

	data, err := export.IssueWorkbookBytes(resp.Issues)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build workbook: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"filename":       fmt.Sprintf("issues_%s.xlsx", time.Now().Format("20060102")),
		"content_type":   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"count":          len(resp.Issues),
		"total_count":    resp.TotalCount,
		"content_base64": base64.StdEncoding.EncodeToString(data),
	})
}

// buildIssueQuery translates list-tool arguments into an IssueQuery,
// validating the enum-or-number parameters and collecting cf_<id> filters.
func buildIssueQuery(req mcp.CallToolRequest) (redmine.IssueQuery, error) {
	query := redmine.IssueQuery{
		ProjectID:    req.GetString("project_id", ""),
		IssueID:      req.GetString("issue_id", ""),
		SubprojectID: req.GetString("subproject_id", ""),
		TrackerID:    req.GetInt("tracker_id", 0),
		ParentID:     req.GetInt("parent_id", 0),
		CreatedOn:    req.GetString("created_on", ""),
		UpdatedOn:    req.GetString("updated_on", ""),
		Sort:         req.GetString("sort", ""),
		Include:      req.GetString("include", ""),
		Limit:        req.GetInt("limit", 25),
		Offset:       req.GetInt("offset", 0),
	}

	if status := req.GetString("status_id", ""); status != "" {
		if !validStatusFilter(status) {
			return query, fmt.Errorf("invalid status_id %q: want a numeric ID or one of 'open', 'closed', '*'", status)
		}
		query.StatusID = status
	}

	if assignee := req.GetString("assigned_to_id", ""); assignee != "" {
		if !validAssigneeFilter(assignee) {
			return query, fmt.Errorf("invalid assigned_to_id %q: want a numeric ID or 'me'", assignee)
		}
		query.AssignedToID = assignee
	}

	// Arbitrary cf_<id> custom-field filters pass through untouched.
	for key, value := range req.GetArguments() {
		id, ok := strings.CutPrefix(key, "cf_")
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(id); err != nil {
			continue
		}
		if query.CustomFields == nil {
			query.CustomFields = make(map[string]string)
		}
		query.CustomFields[key] = fmt.Sprintf("%v", value)
	}

	query.Filters = format.BuildTextFilterQuery(format.TextFilters{
		Subject:     req.GetString("subject_filter", ""),
		Description: req.GetString("description_filter", ""),
		Notes:       req.GetString("notes_filter", ""),
	})

	return query, nil
}

func validStatusFilter(status string) bool {
	switch status {
	case "open", "closed", "*":
		return true
	}
	_, err := strconv.Atoi(status)
	return err == nil
}

func validAssigneeFilter(assignee string) bool {
	if assignee == "me" {
		return true
	}
	_, err := strconv.Atoi(assignee)
	return err == nil
}

// requireIntArg reads a required numeric argument, tolerating the numeric
// shapes JSON and stringly-typed MCP clients produce.
func requireIntArg(req mcp.CallToolRequest, key string) (int, error) {
	args := req.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required argument %q not found", key)
	}

	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("argument %q must be a number, got %q", key, n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func getMapArg(req mcp.CallToolRequest, key string) map[string]any {
	args := req.GetArguments()
	if v, ok := args[key]; ok {
		// Try direct map type
		if m, ok := v.(map[string]any); ok {
			return m
		}
		// Try parsing from JSON string (MCP sometimes stringifies objects)
		if s, ok := v.(string); ok && strings.HasPrefix(s, "{") {
			var m map[string]any
			if err := json.Unmarshal([]byte(s), &m); err == nil {
				return m
			}
		}
	}
	return nil
}
