package model

import "time"

// Credential is the stored login record for a GitLab endpoint.
// Identity and Secret are both non-empty whenever the record exists.
// RefreshToken and ExpiresAt are set only for device-flow logins; personal
// access tokens neither expire this way nor refresh.
type Credential struct {
	Identity     string    `json:"identity"`
	Secret       string    `json:"secret"`
	Endpoint     string    `json:"endpoint"`
	IssuedAt     time.Time `json:"issued_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the credential's access token has an expiry and
// it has passed. Tokens without an expiry never expire.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// User identifies a GitLab account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Project is an immutable snapshot of a remote project. It is refreshed
// wholesale, never partially patched.
type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	FullPath       string     `json:"full_path"`
	Visibility     string     `json:"visibility"`
	Description    string     `json:"description,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	Namespace      string     `json:"namespace,omitempty"`
}

// Issue is a project-scoped issue summary. IID is the per-project sequence
// number, distinct from the globally unique ID.
type Issue struct {
	ID          string    `json:"id"`
	IID         int       `json:"iid"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	State       string    `json:"state"` // "opened" or "closed"
	Labels      []string  `json:"labels"`
	Author      User      `json:"author"`
	Assignees   []User    `json:"assignees"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	WebURL      string    `json:"web_url"`
}

// IssueRef identifies the issuable a time entry was logged against.
type IssueRef struct {
	ProjectPath string `json:"project_path"`
	IID         int    `json:"iid"`
	Title       string `json:"title"`
}

// TimeEntry is a single logged unit of work in whole seconds.
type TimeEntry struct {
	ID        string    `json:"id"`
	TimeSpent int64     `json:"time_spent"`
	SpentAt   time.Time `json:"spent_at"`
	Summary   string    `json:"summary,omitempty"`
	Issue     IssueRef  `json:"issue"`
	User      User      `json:"user"`
}

// PageInfo carries relay-style pagination state returned by list queries.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}
