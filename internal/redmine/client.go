package redmine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a Redmine API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Redmine client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doRequest performs an HTTP request to the Redmine API
func (c *Client) doRequest(method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// IDName represents a simple id/name pair
type IDName struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CustomField represents a custom field value attached to an issue.
// Value is a string, a list of strings, or null depending on the field format.
type CustomField struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Journal represents an issue journal entry (comment/change)
type Journal struct {
	ID           int      `json:"id"`
	User         IDName   `json:"user"`
	Notes        string   `json:"notes"`
	PrivateNotes bool     `json:"private_notes,omitempty"`
	CreatedOn    string   `json:"created_on"`
	Details      []Detail `json:"details,omitempty"`
}

// Detail represents a journal detail (field change)
type Detail struct {
	Property string `json:"property"`
	Name     string `json:"name"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

// Relation represents an issue relation
type Relation struct {
	ID           int    `json:"id"`
	IssueID      int    `json:"issue_id"`
	IssueToID    int    `json:"issue_to_id"`
	RelationType string `json:"relation_type"`
	Delay        int    `json:"delay,omitempty"`
}

// Attachment represents a file attached to an issue
type Attachment struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	Filesize    int64  `json:"filesize"`
	ContentType string `json:"content_type"`
	Description string `json:"description"`
	Author      IDName `json:"author"`
	CreatedOn   string `json:"created_on"`
}

// Issue represents a Redmine issue
type Issue struct {
	ID           int     `json:"id"`
	Project      IDName  `json:"project"`
	Tracker      IDName  `json:"tracker"`
	Status       IDName  `json:"status"`
	Priority     IDName  `json:"priority"`
	Author       IDName  `json:"author"`
	AssignedTo   *IDName `json:"assigned_to,omitempty"`
	Category     *IDName `json:"category,omitempty"`
	FixedVersion *IDName `json:"fixed_version,omitempty"`
	Subject      string  `json:"subject"`
	Description  string  `json:"description,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	DueDate      string  `json:"due_date,omitempty"`
	DoneRatio    int     `json:"done_ratio"`
	// Pointers so a real zero ("0 hours logged") is distinguishable from absent.
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	SpentHours     *float64 `json:"spent_hours,omitempty"`
	CreatedOn      string   `json:"created_on"`
	UpdatedOn      string   `json:"updated_on"`
	ClosedOn       string   `json:"closed_on,omitempty"`
	Parent         *struct {
		ID int `json:"id"`
	} `json:"parent,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	Journals     []Journal     `json:"journals,omitempty"`
	Relations    []Relation    `json:"relations,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`
}

// IssuesResponse is the response from /issues.json
type IssuesResponse struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

// IssueQuery holds query parameters for listing issues. Zero-value fields are
// omitted from the request. Filters carries pre-built Redmine filter triplets
// (f[]/op/v) and is merged into the query verbatim.
type IssueQuery struct {
	ProjectID    string
	IssueID      string
	SubprojectID string
	TrackerID    int
	ParentID     int
	StatusID     string // numeric ID or "open", "closed", "*"
	AssignedToID string // numeric ID or "me"
	CreatedOn    string
	UpdatedOn    string
	Sort         string
	Include      string
	Limit        int
	Offset       int
	CustomFields map[string]string // "cf_<id>" -> value, passed through as-is
	Filters      url.Values
}

// Values encodes the query as URL parameters
func (q IssueQuery) Values() url.Values {
	values := url.Values{}

	if q.ProjectID != "" {
		values.Set("project_id", q.ProjectID)
	}
	if q.IssueID != "" {
		values.Set("issue_id", q.IssueID)
	}
	if q.SubprojectID != "" {
		values.Set("subproject_id", q.SubprojectID)
	}
	if q.TrackerID > 0 {
		values.Set("tracker_id", strconv.Itoa(q.TrackerID))
	}
	if q.ParentID > 0 {
		values.Set("parent_id", strconv.Itoa(q.ParentID))
	}
	if q.StatusID != "" {
		values.Set("status_id", q.StatusID)
	}
	if q.AssignedToID != "" {
		values.Set("assigned_to_id", q.AssignedToID)
	}
	if q.CreatedOn != "" {
		values.Set("created_on", q.CreatedOn)
	}
	if q.UpdatedOn != "" {
		values.Set("updated_on", q.UpdatedOn)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	if q.Include != "" {
		values.Set("include", q.Include)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	} else {
		values.Set("limit", "25")
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}

	for key, value := range q.CustomFields {
		values.Set(key, value)
	}

	for key, vs := range q.Filters {
		for _, v := range vs {
			values.Add(key, v)
		}
	}

	return values
}

// ListIssues returns issues matching the query along with pagination info
func (c *Client) ListIssues(q IssueQuery) (*IssuesResponse, error) {
	path := "/issues.json?" + q.Values().Encode()
	data, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp IssuesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &resp, nil
}

// GetIssue returns an issue by ID. include lists associations to expand
// (e.g. "journals,relations,attachments"); empty fetches the bare issue.
func (c *Client) GetIssue(issueID int, include string) (*Issue, error) {
	path := fmt.Sprintf("/issues/%d.json", issueID)
	if include != "" {
		path += "?include=" + url.QueryEscape(include)
	}
	data, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Issue Issue `json:"issue"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &resp.Issue, nil
}

// CreateIssueParams are parameters for creating an issue
type CreateIssueParams struct {
	ProjectID     int
	TrackerID     int
	Subject       string
	Description   string
	StatusID      int
	PriorityID    int
	AssignedToID  int
	CategoryID    int
	VersionID     int
	ParentIssueID int
	StartDate     string
	DueDate       string
	DoneRatio     int
	CustomFields  map[string]any
}

// CreateIssue creates a new issue
func (c *Client) CreateIssue(params CreateIssueParams) (*Issue, error) {
	reqBody := map[string]any{
		"issue": map[string]any{
			"project_id": params.ProjectID,
			"subject":    params.Subject,
		},
	}

	issueData := reqBody["issue"].(map[string]any)

	if params.TrackerID > 0 {
		issueData["tracker_id"] = params.TrackerID
	}
	if params.Description != "" {
		issueData["description"] = params.Description
	}
	if params.StatusID > 0 {
		issueData["status_id"] = params.StatusID
	}
	if params.PriorityID > 0 {
		issueData["priority_id"] = params.PriorityID
	}
	if params.AssignedToID > 0 {
		issueData["assigned_to_id"] = params.AssignedToID
	}
	if params.CategoryID > 0 {
		issueData["category_id"] = params.CategoryID
	}
	if params.VersionID > 0 {
		issueData["fixed_version_id"] = params.VersionID
	}
	if params.ParentIssueID > 0 {
		issueData["parent_issue_id"] = params.ParentIssueID
	}
	if params.StartDate != "" {
		issueData["start_date"] = params.StartDate
	}
	if params.DueDate != "" {
		issueData["due_date"] = params.DueDate
	}
	if params.DoneRatio > 0 {
		issueData["done_ratio"] = params.DoneRatio
	}

	if len(params.CustomFields) > 0 {
		issueData["custom_fields"] = customFieldList(params.CustomFields)
	}

	data, err := c.doRequest("POST", "/issues.json", reqBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Issue Issue `json:"issue"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &resp.Issue, nil
}

// UpdateIssueParams are parameters for updating an issue
type UpdateIssueParams struct {
	Subject      string
	Description  string
	StatusID     int
	PriorityID   int
	TrackerID    int
	AssignedToID int
	CategoryID   int
	VersionID    int
	StartDate    string
	DueDate      string
	DoneRatio    int
	Notes        string
	CustomFields map[string]any
}

// UpdateIssue updates an existing issue
func (c *Client) UpdateIssue(issueID int, params UpdateIssueParams) error {
	issueData := make(map[string]any)

	if params.Subject != "" {
		issueData["subject"] = params.Subject
	}
	if params.Description != "" {
		issueData["description"] = params.Description
	}
	if params.StatusID > 0 {
		issueData["status_id"] = params.StatusID
	}
	if params.PriorityID > 0 {
		issueData["priority_id"] = params.PriorityID
	}
	if params.TrackerID > 0 {
		issueData["tracker_id"] = params.TrackerID
	}
	if params.AssignedToID > 0 {
		issueData["assigned_to_id"] = params.AssignedToID
	}
	if params.CategoryID > 0 {
		issueData["category_id"] = params.CategoryID
	}
	if params.VersionID > 0 {
		issueData["fixed_version_id"] = params.VersionID
	}
	if params.StartDate != "" {
		issueData["start_date"] = params.StartDate
	}
	if params.DueDate != "" {
		issueData["due_date"] = params.DueDate
	}
	if params.DoneRatio > 0 {
		issueData["done_ratio"] = params.DoneRatio
	}
	if params.Notes != "" {
		issueData["notes"] = params.Notes
	}

	if len(params.CustomFields) > 0 {
		issueData["custom_fields"] = customFieldList(params.CustomFields)
	}

	reqBody := map[string]any{
		"issue": issueData,
	}

	path := fmt.Sprintf("/issues/%d.json", issueID)
	_, err := c.doRequest("PUT", path, reqBody)
	return err
}

func customFieldList(fields map[string]any) []map[string]any {
	customFields := make([]map[string]any, 0, len(fields))
	for id, value := range fields {
		cfID, _ := strconv.Atoi(id)
		customFields = append(customFields, map[string]any{
			"id":    cfID,
			"value": value,
		})
	}
	return customFields
}
