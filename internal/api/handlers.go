package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takahara/redmine-issues-mcp/internal/export"
	"github.com/takahara/redmine-issues-mcp/internal/format"
	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

// @title Redmine Issues API
// @version 1.0
// @description Issue read/write gateway rendering agent-friendly XML
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Redmine-API-Key

const defaultInclude = "journals,relations,attachments"

type contextKey string

const clientContextKey contextKey = "redmineClient"

func withClient(ctx context.Context, client *redmine.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

func getClient(ctx context.Context) *redmine.Client {
	return ctx.Value(clientContextKey).(*redmine.Client)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// @Summary List issues
// @Description Returns issues matching the filters, rendered as XML
// @Tags Issues
// @Produce xml
// @Security ApiKeyAuth
// @Param project_id query string false "Project ID or identifier"
// @Param status_id query string false "Status ID, or 'open', 'closed', '*'"
// @Param assigned_to_id query string false "Assignee user ID, or 'me'"
// @Param subject_filter query string false "Free text the subject must contain"
// @Param detail_level query string false "Output detail: 'full' or 'brief'"
// @Param brief_fields query string false "JSON object selecting brief-mode field groups"
// @Param limit query int false "Number of issues to return" default(25)
// @Param offset query int false "Pagination offset"
// @Success 200 {string} string "XML issue list"
// @Failure 400 {object} map[string]string
// @Router /issues [get]
func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	query, err := issueQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := client.ListIssues(query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	opts := format.ParseOptions(formatArgs(r.URL.Query()), slog.Default())
	writeXML(w, http.StatusOK, format.FormatIssues(resp, &opts))
}

// @Summary Get issue
// @Description Returns one issue rendered as XML, including journals, relations, and attachments
// @Tags Issues
// @Produce xml
// @Security ApiKeyAuth
// @Param id path int true "Issue ID"
// @Param include query string false "Associations to expand"
// @Param detail_level query string false "Output detail: 'full' or 'brief'"
// @Param brief_fields query string false "JSON object selecting brief-mode field groups"
// @Success 200 {string} string "XML issue"
// @Failure 400 {object} map[string]string
// @Router /issues/{id} [get]
func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	issueID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid issue ID")
		return
	}

	include := r.URL.Query().Get("include")
	if include == "" {
		include = defaultInclude
	}

	issue, err := client.GetIssue(issueID, include)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	opts := format.ParseOptions(formatArgs(r.URL.Query()), slog.Default())
	writeXML(w, http.StatusOK, format.FormatIssue(*issue, &opts))
}

type createIssueRequest struct {
	ProjectID     int            `json:"project_id"`
	TrackerID     int            `json:"tracker_id"`
	Subject       string         `json:"subject"`
	Description   string         `json:"description"`
	StatusID      int            `json:"status_id"`
	PriorityID    int            `json:"priority_id"`
	AssignedToID  int            `json:"assigned_to_id"`
	CategoryID    int            `json:"category_id"`
	VersionID     int            `json:"fixed_version_id"`
	ParentIssueID int            `json:"parent_issue_id"`
	StartDate     string         `json:"start_date"`
	DueDate       string         `json:"due_date"`
	DoneRatio     int            `json:"done_ratio"`
	CustomFields  map[string]any `json:"custom_fields"`
}

// @Summary Create issue
// @Description Creates a new issue and returns it rendered as XML
// @Tags Issues
// @Accept json
// @Produce xml
// @Security ApiKeyAuth
// @Param issue body createIssueRequest true "Issue fields"
// @Success 201 {string} string "XML issue"
// @Failure 400 {object} map[string]string
// @Router /issues [post]
func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProjectID <= 0 || strings.TrimSpace(req.Subject) == "" {
		writeError(w, http.StatusBadRequest, "project_id and subject are required")
		return
	}

	issue, err := client.CreateIssue(redmine.CreateIssueParams{
		ProjectID:     req.ProjectID,
		TrackerID:     req.TrackerID,
		Subject:       req.Subject,
		Description:   req.Description,
		StatusID:      req.StatusID,
		PriorityID:    req.PriorityID,
		AssignedToID:  req.AssignedToID,
		CategoryID:    req.CategoryID,
		VersionID:     req.VersionID,
		ParentIssueID: req.ParentIssueID,
		StartDate:     req.StartDate,
		DueDate:       req.DueDate,
		DoneRatio:     req.DoneRatio,
		CustomFields:  req.CustomFields,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeXML(w, http.StatusCreated, format.FormatIssue(*issue, nil))
}

type updateIssueRequest struct {
	Subject      string         `json:"subject"`
	Description  string         `json:"description"`
	StatusID     int            `json:"status_id"`
	PriorityID   int            `json:"priority_id"`
	TrackerID    int            `json:"tracker_id"`
	AssignedToID int            `json:"assigned_to_id"`
	CategoryID   int            `json:"category_id"`
	VersionID    int            `json:"fixed_version_id"`
	StartDate    string         `json:"start_date"`
	DueDate      string         `json:"due_date"`
	DoneRatio    int            `json:"done_ratio"`
	Notes        string         `json:"notes"`
	CustomFields map[string]any `json:"custom_fields"`
}

// @Summary Update issue
// @Description Applies a partial update to an issue
// @Tags Issues
// @Accept json
// @Security ApiKeyAuth
// @Param id path int true "Issue ID"
// @Param issue body updateIssueRequest true "Fields to change"
// @Success 204 "Updated"
// @Failure 400 {object} map[string]string
// @Router /issues/{id} [patch]
func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	issueID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid issue ID")
		return
	}

	var req updateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := client.UpdateIssue(issueID, redmine.UpdateIssueParams{
		Subject:      req.Subject,
		Description:  req.Description,
		StatusID:     req.StatusID,
		PriorityID:   req.PriorityID,
		TrackerID:    req.TrackerID,
		AssignedToID: req.AssignedToID,
		CategoryID:   req.CategoryID,
		VersionID:    req.VersionID,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		DoneRatio:    req.DoneRatio,
		Notes:        req.Notes,
		CustomFields: req.CustomFields,
	}); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Export issues
// @Description Exports issues matching the filters as an XLSX workbook
// @Tags Issues
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param project_id query string false "Project ID or identifier"
// @Param status_id query string false "Status ID, or 'open', 'closed', '*'"
// @Success 200 {file} binary "XLSX workbook"
// @Failure 400 {object} map[string]string
// @Router /issues/export [get]
func (s *Server) handleExportIssues(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	query, err := issueQueryFromValues(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := client.ListIssues(query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	data, err := export.IssueWorkbookBytes(resp.Issues)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("issues_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// issueQueryFromValues translates list query parameters into an IssueQuery,
// with the same enum validation and cf_<id> passthrough as the MCP tools.
func issueQueryFromValues(values url.Values) (redmine.IssueQuery, error) {
	query := redmine.IssueQuery{
		ProjectID:    values.Get("project_id"),
		IssueID:      values.Get("issue_id"),
		SubprojectID: values.Get("subproject_id"),
		CreatedOn:    values.Get("created_on"),
		UpdatedOn:    values.Get("updated_on"),
		Sort:         values.Get("sort"),
		Include:      values.Get("include"),
	}

	if tracker := values.Get("tracker_id"); tracker != "" {
		n, err := strconv.Atoi(tracker)
		if err != nil {
			return query, fmt.Errorf("invalid tracker_id %q", tracker)
		}
		query.TrackerID = n
	}
	if parent := values.Get("parent_id"); parent != "" {
		n, err := strconv.Atoi(parent)
		if err != nil {
			return query, fmt.Errorf("invalid parent_id %q", parent)
		}
		query.ParentID = n
	}
	if limit := values.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return query, fmt.Errorf("invalid limit %q", limit)
		}
		query.Limit = n
	}
	if offset := values.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			return query, fmt.Errorf("invalid offset %q", offset)
		}
		query.Offset = n
	}

	if status := values.Get("status_id"); status != "" {
		if !validStatusFilter(status) {
			return query, fmt.Errorf("invalid status_id %q: want a numeric ID or one of 'open', 'closed', '*'", status)
		}
		query.StatusID = status
	}
	if assignee := values.Get("assigned_to_id"); assignee != "" {
		if !validAssigneeFilter(assignee) {
			return query, fmt.Errorf("invalid assigned_to_id %q: want a numeric ID or 'me'", assignee)
		}
		query.AssignedToID = assignee
	}

	for key := range values {
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
		query.CustomFields[key] = values.Get(key)
	}

	query.Filters = format.BuildTextFilterQuery(format.TextFilters{
		Subject:     values.Get("subject_filter"),
		Description: values.Get("description_filter"),
		Notes:       values.Get("notes_filter"),
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

// formatArgs lifts formatting query parameters into the argument shape the
// option parser expects, converting the numeric ones from strings.
func formatArgs(values url.Values) map[string]any {
	args := make(map[string]any)
	if v := values.Get("detail_level"); v != "" {
		args["detail_level"] = v
	}
	if v := values.Get("brief_fields"); v != "" {
		args["brief_fields"] = v
	}
	for _, key := range []string{"max_description_length", "max_journal_entries"} {
		if v := values.Get(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				args[key] = n
			}
		}
	}
	return args
}
