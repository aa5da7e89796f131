// Package gitlab is a thin client for the GitLab GraphQL API. It owns
// request construction and duration formatting only: it never caches, never
// retries, and leaves cache invalidation after writes to its caller.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ufrutov/gitlab-client/internal/model"
)

// Client is an authenticated GitLab GraphQL API client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	pageSize   int
	logger     *zap.Logger
}

// NewClient builds a client for the credential's endpoint. The secret is
// sent as a bearer token; both personal access tokens and OAuth access
// tokens work this way.
func NewClient(ctx context.Context, cred *model.Credential, pageSize int, logger *zap.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Secret})
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		endpoint:   strings.TrimRight(cred.Endpoint, "/"),
		httpClient: oauth2.NewClient(ctx, ts),
		pageSize:   pageSize,
		logger:     logger,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do posts one GraphQL operation and decodes the data payload into out.
// Failures surface as typed errors; nothing is retried.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/graphql", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	reqID := uuid.NewString()
	c.logger.Debug("graphql request",
		zap.String("op", op),
		zap.String("request_id", reqID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("graphql response",
		zap.String("op", op),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var env gqlEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, len(env.Errors))
		for i, e := range env.Errors {
			msgs[i] = e.Message
		}
		return &RemoteError{Message: strings.Join(msgs, "; ")}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding %s data: %w", op, err)
		}
	}
	return nil
}

// Wire types mirror the GraphQL field names; model types are the stable
// shapes the rest of the program (and the cache) works with.

type pageInfoNode struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

func (p pageInfoNode) toModel() model.PageInfo {
	return model.PageInfo{HasNextPage: p.HasNextPage, EndCursor: p.EndCursor}
}

type userNode struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (u userNode) toModel() model.User {
	return model.User{ID: u.ID, Username: u.Username, Name: u.Name}
}

type projectNode struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	FullPath       string     `json:"fullPath"`
	Visibility     string     `json:"visibility"`
	Description    string     `json:"description"`
	LastActivityAt *time.Time `json:"lastActivityAt"`
	Namespace      struct {
		FullPath string `json:"fullPath"`
	} `json:"namespace"`
}

func (p projectNode) toModel() model.Project {
	return model.Project{
		ID:             p.ID,
		Name:           p.Name,
		FullPath:       p.FullPath,
		Visibility:     p.Visibility,
		Description:    p.Description,
		LastActivityAt: p.LastActivityAt,
		Namespace:      p.Namespace.FullPath,
	}
}

type issueNode struct {
	ID          string `json:"id"`
	IID         string `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	Labels      struct {
		Nodes []struct {
			Title string `json:"title"`
		} `json:"nodes"`
	} `json:"labels"`
	Author    userNode `json:"author"`
	Assignees struct {
		Nodes []userNode `json:"nodes"`
	} `json:"assignees"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	WebURL    string    `json:"webUrl"`
}

func (i issueNode) toModel() model.Issue {
	iid, _ := strconv.Atoi(i.IID)
	labels := make([]string, 0, len(i.Labels.Nodes))
	for _, l := range i.Labels.Nodes {
		labels = append(labels, l.Title)
	}
	assignees := make([]model.User, 0, len(i.Assignees.Nodes))
	for _, a := range i.Assignees.Nodes {
		assignees = append(assignees, a.toModel())
	}
	return model.Issue{
		ID:          i.ID,
		IID:         iid,
		Title:       i.Title,
		Description: i.Description,
		State:       i.State,
		Labels:      labels,
		Author:      i.Author.toModel(),
		Assignees:   assignees,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		WebURL:      i.WebURL,
	}
}

type timelogNode struct {
	ID        string    `json:"id"`
	TimeSpent int64     `json:"timeSpent"`
	SpentAt   time.Time `json:"spentAt"`
	Summary   string    `json:"summary"`
	User      userNode  `json:"user"`
	Issue     *struct {
		IID       string `json:"iid"`
		Title     string `json:"title"`
		Reference string `json:"reference"`
	} `json:"issue"`
}

func (t timelogNode) toModel() model.TimeEntry {
	entry := model.TimeEntry{
		ID:        t.ID,
		TimeSpent: t.TimeSpent,
		SpentAt:   t.SpentAt,
		Summary:   t.Summary,
		User:      t.User.toModel(),
	}
	if t.Issue != nil {
		// A full reference looks like "group/project#42".
		path, _, _ := strings.Cut(t.Issue.Reference, "#")
		iid, _ := strconv.Atoi(t.Issue.IID)
		entry.Issue = model.IssueRef{ProjectPath: path, IID: iid, Title: t.Issue.Title}
	}
	return entry
}

const projectFields = `
	id name fullPath visibility description lastActivityAt
	namespace { fullPath }`

const issueFields = `
	id iid title description state webUrl createdAt updatedAt
	labels { nodes { title } }
	author { id username name }
	assignees { nodes { id username name } }`

const timelogFields = `
	id timeSpent spentAt summary
	user { id username name }
	issue { iid title reference(full: true) }`

// ListProjects returns one page of membership projects, optionally filtered
// by a search term. Pass the previous page's EndCursor to continue.
func (c *Client) ListProjects(ctx context.Context, search, after string) ([]model.Project, model.PageInfo, error) {
	query := `query ($search: String, $first: Int, $after: String) {
		projects(membership: true, search: $search, first: $first, after: $after) {
			nodes {` + projectFields + ` }
			pageInfo { hasNextPage endCursor }
		}
	}`
	vars := map[string]any{"first": c.pageSize}
	if search != "" {
		vars["search"] = search
	}
	if after != "" {
		vars["after"] = after
	}

	var data struct {
		Projects struct {
			Nodes    []projectNode `json:"nodes"`
			PageInfo pageInfoNode  `json:"pageInfo"`
		} `json:"projects"`
	}
	if err := c.do(ctx, "listProjects", query, vars, &data); err != nil {
		return nil, model.PageInfo{}, err
	}

	projects := make([]model.Project, 0, len(data.Projects.Nodes))
	for _, n := range data.Projects.Nodes {
		projects = append(projects, n.toModel())
	}
	return projects, data.Projects.PageInfo.toModel(), nil
}

// GetProject fetches a single project by full path.
func (c *Client) GetProject(ctx context.Context, fullPath string) (*model.Project, error) {
	query := `query ($fullPath: ID!) {
		project(fullPath: $fullPath) {` + projectFields + ` }
	}`

	var data struct {
		Project *projectNode `json:"project"`
	}
	if err := c.do(ctx, "getProject", query, map[string]any{"fullPath": fullPath}, &data); err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, &RemoteError{Message: fmt.Sprintf("project %q not found", fullPath)}
	}
	p := data.Project.toModel()
	return &p, nil
}

// IssueOpts narrows an issue listing. Zero values mean no filter.
type IssueOpts struct {
	Search   string
	State    string // "opened" or "closed"
	Label    string
	Assignee string
	After    string
}

// ListIssues returns one page of a project's issues.
func (c *Client) ListIssues(ctx context.Context, fullPath string, opts IssueOpts) ([]model.Issue, model.PageInfo, error) {
	query := `query ($fullPath: ID!, $search: String, $state: IssuableState,
			$labels: [String!], $assignees: [String!], $first: Int, $after: String) {
		project(fullPath: $fullPath) {
			issues(search: $search, state: $state, labelName: $labels,
					assigneeUsernames: $assignees, first: $first, after: $after) {
				nodes {` + issueFields + ` }
				pageInfo { hasNextPage endCursor }
			}
		}
	}`
	vars := map[string]any{"fullPath": fullPath, "first": c.pageSize}
	if opts.Search != "" {
		vars["search"] = opts.Search
	}
	if opts.State != "" {
		vars["state"] = opts.State
	}
	if opts.Label != "" {
		vars["labels"] = []string{opts.Label}
	}
	if opts.Assignee != "" {
		vars["assignees"] = []string{opts.Assignee}
	}
	if opts.After != "" {
		vars["after"] = opts.After
	}

	var data struct {
		Project *struct {
			Issues struct {
				Nodes    []issueNode  `json:"nodes"`
				PageInfo pageInfoNode `json:"pageInfo"`
			} `json:"issues"`
		} `json:"project"`
	}
	if err := c.do(ctx, "listIssues", query, vars, &data); err != nil {
		return nil, model.PageInfo{}, err
	}
	if data.Project == nil {
		return nil, model.PageInfo{}, &RemoteError{Message: fmt.Sprintf("project %q not found", fullPath)}
	}

	issues := make([]model.Issue, 0, len(data.Project.Issues.Nodes))
	for _, n := range data.Project.Issues.Nodes {
		issues = append(issues, n.toModel())
	}
	return issues, data.Project.Issues.PageInfo.toModel(), nil
}

// GetIssue fetches a single issue with its nested time entries.
func (c *Client) GetIssue(ctx context.Context, fullPath string, iid int) (*model.Issue, []model.TimeEntry, error) {
	query := `query ($fullPath: ID!, $iid: String!) {
		project(fullPath: $fullPath) {
			issue(iid: $iid) {` + issueFields + `
				timelogs(first: 100) { nodes {` + timelogFields + ` } }
			}
		}
	}`
	vars := map[string]any{"fullPath": fullPath, "iid": strconv.Itoa(iid)}

	var data struct {
		Project *struct {
			Issue *struct {
				issueNode
				Timelogs struct {
					Nodes []timelogNode `json:"nodes"`
				} `json:"timelogs"`
			} `json:"issue"`
		} `json:"project"`
	}
	if err := c.do(ctx, "getIssue", query, vars, &data); err != nil {
		return nil, nil, err
	}
	if data.Project == nil || data.Project.Issue == nil {
		return nil, nil, &RemoteError{Message: fmt.Sprintf("issue %s#%d not found", fullPath, iid)}
	}

	issue := data.Project.Issue.toModel()
	entries := make([]model.TimeEntry, 0, len(data.Project.Issue.Timelogs.Nodes))
	for _, n := range data.Project.Issue.Timelogs.Nodes {
		entries = append(entries, n.toModel())
	}
	return &issue, entries, nil
}

// TimeEntries fetches every time entry the user logged in [from, to),
// following pagination cursors until exhaustion. Callers pass one calendar
// month so the result maps onto a single "YYYY-MM" cache period.
func (c *Client) TimeEntries(ctx context.Context, username string, from, to time.Time) ([]model.TimeEntry, error) {
	query := `query ($username: String!, $start: Time, $end: Time, $first: Int, $after: String) {
		timelogs(username: $username, startDate: $start, endDate: $end, first: $first, after: $after) {
			nodes {` + timelogFields + ` }
			pageInfo { hasNextPage endCursor }
		}
	}`

	var all []model.TimeEntry
	after := ""
	for {
		vars := map[string]any{
			"username": username,
			"start":    from.UTC().Format(time.RFC3339),
			"end":      to.UTC().Format(time.RFC3339),
			"first":    c.pageSize,
		}
		if after != "" {
			vars["after"] = after
		}

		var data struct {
			Timelogs struct {
				Nodes    []timelogNode `json:"nodes"`
				PageInfo pageInfoNode  `json:"pageInfo"`
			} `json:"timelogs"`
		}
		if err := c.do(ctx, "timeEntries", query, vars, &data); err != nil {
			return nil, err
		}
		for _, n := range data.Timelogs.Nodes {
			all = append(all, n.toModel())
		}
		if !data.Timelogs.PageInfo.HasNextPage {
			return all, nil
		}
		after = data.Timelogs.PageInfo.EndCursor
	}
}

// CurrentUser resolves the identity behind the stored credential.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	query := `query { currentUser { id username name } }`

	var data struct {
		CurrentUser *userNode `json:"currentUser"`
	}
	if err := c.do(ctx, "currentUser", query, nil, &data); err != nil {
		return nil, err
	}
	if data.CurrentUser == nil {
		return nil, &RemoteError{Message: "token is not associated with a user"}
	}
	u := data.CurrentUser.toModel()
	return &u, nil
}

// AddTimeEntry logs time against an issue. duration is the compact "1h30m"
// form and is passed to the service verbatim. On success the created entry
// is returned so the caller can invalidate the matching cached period; the
// client itself never touches the cache.
func (c *Client) AddTimeEntry(ctx context.Context, issueID, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error) {
	query := `mutation ($input: TimelogCreateInput!) {
		timelogCreate(input: $input) {
			timelog {` + timelogFields + ` }
			errors
		}
	}`
	input := map[string]any{
		"issuableId": issueID,
		"timeSpent":  duration,
	}
	if spentAt != nil {
		input["spentAt"] = spentAt.UTC().Format(time.RFC3339)
	}
	if summary != "" {
		input["summary"] = summary
	}

	var data struct {
		TimelogCreate struct {
			Timelog *timelogNode `json:"timelog"`
			Errors  []string     `json:"errors"`
		} `json:"timelogCreate"`
	}
	if err := c.do(ctx, "addTimeEntry", query, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if len(data.TimelogCreate.Errors) > 0 {
		return nil, &RemoteError{Message: strings.Join(data.TimelogCreate.Errors, "; ")}
	}
	if data.TimelogCreate.Timelog == nil {
		return nil, &RemoteError{Message: "service did not return the created time entry"}
	}
	entry := data.TimelogCreate.Timelog.toModel()
	return &entry, nil
}

// DeleteTimeEntry removes a time entry by its global identifier and returns
// the deleted entry so the caller can invalidate its period's cache.
func (c *Client) DeleteTimeEntry(ctx context.Context, entryID string) (*model.TimeEntry, error) {
	query := `mutation ($input: TimelogDeleteInput!) {
		timelogDelete(input: $input) {
			timelog {` + timelogFields + ` }
			errors
		}
	}`
	vars := map[string]any{"input": map[string]any{"id": entryID}}

	var data struct {
		TimelogDelete struct {
			Timelog *timelogNode `json:"timelog"`
			Errors  []string     `json:"errors"`
		} `json:"timelogDelete"`
	}
	if err := c.do(ctx, "deleteTimeEntry", query, vars, &data); err != nil {
		return nil, err
	}
	if len(data.TimelogDelete.Errors) > 0 {
		return nil, &RemoteError{Message: strings.Join(data.TimelogDelete.Errors, "; ")}
	}
	if data.TimelogDelete.Timelog == nil {
		return nil, &RemoteError{Message: "service did not return the deleted time entry"}
	}
	entry := data.TimelogDelete.Timelog.toModel()
	return &entry, nil
}
