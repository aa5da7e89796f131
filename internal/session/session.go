// Package session holds the per-invocation view state: which remote target
// is being browsed, the pagination cursor into it, and the cache-first fetch
// policy. It replaces the hidden global view state a UI shell would keep
// with one explicit object handed to the command layer.
package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ufrutov/gitlab-client/internal/cache"
	"github.com/ufrutov/gitlab-client/internal/config"
	"github.com/ufrutov/gitlab-client/internal/favorites"
	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
	"github.com/ufrutov/gitlab-client/internal/period"
)

// ErrSuperseded means a newer view was started while this request was in
// flight; the stale result must be discarded, not applied.
var ErrSuperseded = errors.New("view superseded by a newer request")

// Remote is the slice of the API client the session drives. The concrete
// client never touches the cache; invalidation after writes happens here.
type Remote interface {
	ListProjects(ctx context.Context, search, after string) ([]model.Project, model.PageInfo, error)
	GetProject(ctx context.Context, fullPath string) (*model.Project, error)
	ListIssues(ctx context.Context, fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error)
	GetIssue(ctx context.Context, fullPath string, iid int) (*model.Issue, []model.TimeEntry, error)
	TimeEntries(ctx context.Context, username string, from, to time.Time) ([]model.TimeEntry, error)
	CurrentUser(ctx context.Context) (*model.User, error)
	AddTimeEntry(ctx context.Context, issueID, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, entryID string) (*model.TimeEntry, error)
}

// Pager tracks relay-style cursor state for one list view. A cursor is only
// meaningful for the target it was issued for, so changing targets resets it.
type Pager struct {
	Target  string
	Cursor  string
	Seen    int
	HasNext bool
}

// Reset points the pager at a new target and drops the stale cursor.
func (p *Pager) Reset(target string) {
	*p = Pager{Target: target}
}

// Advance records the page that was just consumed.
func (p *Pager) Advance(info model.PageInfo, nodes int) {
	p.Cursor = info.EndCursor
	p.HasNext = info.HasNextPage
	p.Seen += nodes
}

// Session wires the stores and the remote client together for one run.
type Session struct {
	ID        string
	Config    config.Config
	Cache     *cache.Store
	Favorites *favorites.Store
	Remote    Remote // nil until a credential exists
	Logger    *zap.Logger

	// OnTimeEntryAdded and OnTimeEntryDeleted fire after a successful
	// mutation, once the affected period's cache has been cleared.
	OnTimeEntryAdded   func(model.TimeEntry)
	OnTimeEntryDeleted func(model.TimeEntry)

	user  *model.User
	pager Pager
	gen   uint64
}

// New builds a session. remote may be nil when no login is recorded; every
// remote operation then fails with gitlab.ErrNoCredentials.
func New(cfg config.Config, cacheStore *cache.Store, fav *favorites.Store, remote Remote, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Config:    cfg,
		Cache:     cacheStore,
		Favorites: fav,
		Remote:    remote,
		Logger:    logger.With(zap.String("session_id", id)),
	}
}

func (s *Session) requireRemote() error {
	if s.Remote == nil {
		return gitlab.ErrNoCredentials
	}
	return nil
}

// beginView starts a new view generation with a fresh pager. Every fetch
// accumulates from an empty listing, so a cursor left over from an earlier
// view (same target or not) must never be resumed: it would produce the
// listing's tail and poison the cached blob. The returned token identifies
// this view so late results can be discarded.
func (s *Session) beginView(target string) uint64 {
	s.pager.Reset(target)
	s.gen++
	return s.gen
}

// currentView reports whether the token still names the latest view.
func (s *Session) currentView(gen uint64) bool {
	return s.gen == gen
}

// Pager exposes the current pagination state for display.
func (s *Session) Pager() Pager {
	return s.pager
}

// CurrentUser resolves and memoizes the identity behind the credential.
func (s *Session) CurrentUser(ctx context.Context) (*model.User, error) {
	if s.user != nil {
		return s.user, nil
	}
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.Remote.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.user = user
	return user, nil
}

// Projects returns the project list, cache-first. A non-empty search term
// always goes to the remote and is never cached: the cached blob is the
// plain membership list, not a query result.
func (s *Session) Projects(ctx context.Context, search string, force bool) ([]model.Project, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}

	var projects []model.Project
	var err error
	if search != "" {
		projects, err = s.fetchProjects(ctx, search)
	} else {
		projects, err = cache.Fetch(s.Cache, cache.KindProjects, "", force, func() ([]model.Project, error) {
			return s.fetchProjects(ctx, "")
		})
	}
	if err != nil {
		return nil, err
	}

	s.sortProjects(projects)
	return projects, nil
}

// fetchProjects follows pagination cursors until the listing is exhausted.
func (s *Session) fetchProjects(ctx context.Context, search string) ([]model.Project, error) {
	gen := s.beginView("projects:" + search)
	var all []model.Project
	for {
		page, info, err := s.Remote.ListProjects(ctx, search, s.pager.Cursor)
		if err != nil {
			return nil, err
		}
		if !s.currentView(gen) {
			return nil, ErrSuperseded
		}
		all = append(all, page...)
		s.pager.Advance(info, len(page))
		if !info.HasNextPage {
			return all, nil
		}
	}
}

// Project fetches a single project, always from the remote: the cached
// blob is only a listing snapshot.
func (s *Session) Project(ctx context.Context, fullPath string) (*model.Project, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	return s.Remote.GetProject(ctx, fullPath)
}

// Issues returns a project's issues, cache-first and keyed by the project
// full path. Filtered listings bypass the cache for the same reason
// searched project listings do.
func (s *Session) Issues(ctx context.Context, fullPath string, opts gitlab.IssueOpts, force bool) ([]model.Issue, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}

	var issues []model.Issue
	var err error
	if opts != (gitlab.IssueOpts{}) {
		issues, err = s.fetchIssues(ctx, fullPath, opts)
	} else {
		issues, err = cache.Fetch(s.Cache, cache.KindIssues, fullPath, force, func() ([]model.Issue, error) {
			return s.fetchIssues(ctx, fullPath, gitlab.IssueOpts{})
		})
	}
	if err != nil {
		return nil, err
	}

	s.sortIssues(issues)
	return issues, nil
}

func (s *Session) fetchIssues(ctx context.Context, fullPath string, opts gitlab.IssueOpts) ([]model.Issue, error) {
	gen := s.beginView("issues:" + fullPath)
	var all []model.Issue
	for {
		opts.After = s.pager.Cursor
		page, info, err := s.Remote.ListIssues(ctx, fullPath, opts)
		if err != nil {
			return nil, err
		}
		if !s.currentView(gen) {
			return nil, ErrSuperseded
		}
		all = append(all, page...)
		s.pager.Advance(info, len(page))
		if !info.HasNextPage {
			return all, nil
		}
	}
}

// Issue fetches one issue with its nested time entries, uncached.
func (s *Session) Issue(ctx context.Context, fullPath string, iid int) (*model.Issue, []model.TimeEntry, error) {
	if err := s.requireRemote(); err != nil {
		return nil, nil, err
	}
	return s.Remote.GetIssue(ctx, fullPath, iid)
}

// Timelogs returns the current user's time entries for one "YYYY-MM"
// period, cache-first. The current user is resolved before the entries
// fetch; the two calls are sequenced deliberately.
func (s *Session) Timelogs(ctx context.Context, periodKey string, force bool) ([]model.TimeEntry, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	loc := s.Config.Location()
	month, err := period.ParseKey(periodKey, loc)
	if err != nil {
		return nil, err
	}
	first, last := period.MonthWindow(month)

	return cache.Fetch(s.Cache, cache.KindTimeEntries, periodKey, force, func() ([]model.TimeEntry, error) {
		return s.Remote.TimeEntries(ctx, user.Username, first, last.AddDate(0, 0, 1))
	})
}

// AddTimeEntry logs time against an issue and clears exactly the cached
// period the new entry lands in.
func (s *Session) AddTimeEntry(ctx context.Context, fullPath string, iid int, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	if err := gitlab.ValidateDuration(duration); err != nil {
		return nil, err
	}

	issue, _, err := s.Remote.GetIssue(ctx, fullPath, iid)
	if err != nil {
		return nil, err
	}
	entry, err := s.Remote.AddTimeEntry(ctx, issue.ID, duration, spentAt, summary)
	if err != nil {
		return nil, err
	}

	key, err := s.clearEntryPeriod(entry)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("time entry added", zap.String("period", key), zap.String("entry_id", entry.ID))
	if s.OnTimeEntryAdded != nil {
		s.OnTimeEntryAdded(*entry)
	}
	return entry, nil
}

// DeleteTimeEntry removes a time entry and clears exactly the cached period
// derived from its spent date; other periods stay untouched.
func (s *Session) DeleteTimeEntry(ctx context.Context, entryID string) (*model.TimeEntry, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	entry, err := s.Remote.DeleteTimeEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	key, err := s.clearEntryPeriod(entry)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("time entry deleted", zap.String("period", key), zap.String("entry_id", entry.ID))
	if s.OnTimeEntryDeleted != nil {
		s.OnTimeEntryDeleted(*entry)
	}
	return entry, nil
}

// clearEntryPeriod invalidates the cached period the entry's spent date
// falls in. An entry without a spent date cannot be mapped to one period,
// so every cached period goes. Returns the key that was cleared.
func (s *Session) clearEntryPeriod(entry *model.TimeEntry) (string, error) {
	if entry.SpentAt.IsZero() {
		return "*", s.Cache.ClearKind(cache.KindTimeEntries)
	}
	key := period.Key(entry.SpentAt.In(s.Config.Location()))
	return key, s.Cache.Clear(cache.KindTimeEntries, key)
}

// sortProjects orders favorites first, then by full path. Favorites only
// reorder, they never filter.
func (s *Session) sortProjects(projects []model.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		fi, fj := s.Favorites.HasProject(projects[i].ID), s.Favorites.HasProject(projects[j].ID)
		if fi != fj {
			return fi
		}
		return projects[i].FullPath < projects[j].FullPath
	})
}

// sortIssues orders favorites first, then by descending iid.
func (s *Session) sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		fi, fj := s.Favorites.HasIssue(issues[i].ID), s.Favorites.HasIssue(issues[j].ID)
		if fi != fj {
			return fi
		}
		return issues[i].IID > issues[j].IID
	})
}
