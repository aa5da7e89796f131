package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrutov/gitlab-client/internal/cache"
	"github.com/ufrutov/gitlab-client/internal/config"
	"github.com/ufrutov/gitlab-client/internal/favorites"
	"github.com/ufrutov/gitlab-client/internal/gitlab"
	"github.com/ufrutov/gitlab-client/internal/model"
)

// fakeRemote satisfies Remote with overridable behaviour per test.
type fakeRemote struct {
	listProjects func(search, after string) ([]model.Project, model.PageInfo, error)
	getProject   func(fullPath string) (*model.Project, error)
	listIssues   func(fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error)
	getIssue     func(fullPath string, iid int) (*model.Issue, []model.TimeEntry, error)
	timeEntries  func(username string, from, to time.Time) ([]model.TimeEntry, error)
	currentUser  func() (*model.User, error)
	addEntry     func(issueID, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error)
	deleteEntry  func(entryID string) (*model.TimeEntry, error)
}

func (f *fakeRemote) ListProjects(_ context.Context, search, after string) ([]model.Project, model.PageInfo, error) {
	return f.listProjects(search, after)
}

func (f *fakeRemote) GetProject(_ context.Context, fullPath string) (*model.Project, error) {
	return f.getProject(fullPath)
}

func (f *fakeRemote) ListIssues(_ context.Context, fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error) {
	return f.listIssues(fullPath, opts)
}

func (f *fakeRemote) GetIssue(_ context.Context, fullPath string, iid int) (*model.Issue, []model.TimeEntry, error) {
	return f.getIssue(fullPath, iid)
}

func (f *fakeRemote) TimeEntries(_ context.Context, username string, from, to time.Time) ([]model.TimeEntry, error) {
	return f.timeEntries(username, from, to)
}

func (f *fakeRemote) CurrentUser(_ context.Context) (*model.User, error) {
	return f.currentUser()
}

func (f *fakeRemote) AddTimeEntry(_ context.Context, issueID, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error) {
	return f.addEntry(issueID, duration, spentAt, summary)
}

func (f *fakeRemote) DeleteTimeEntry(_ context.Context, entryID string) (*model.TimeEntry, error) {
	return f.deleteEntry(entryID)
}

func newTestSession(t *testing.T, remote Remote) *Session {
	t.Helper()
	cfg := config.Config{Endpoint: "https://gitlab.example.com", PageSize: 2, Timezone: "UTC"}
	return New(cfg, cache.New(t.TempDir()), favorites.Load(t.TempDir()), remote, nil)
}

func alice() *model.User {
	return &model.User{ID: "u1", Username: "alice", Name: "Alice"}
}

func TestRemoteRequired(t *testing.T) {
	s := newTestSession(t, nil)

	_, err := s.Projects(context.Background(), "", false)
	assert.ErrorIs(t, err, gitlab.ErrNoCredentials)

	_, err = s.Timelogs(context.Background(), "2024-03", false)
	assert.ErrorIs(t, err, gitlab.ErrNoCredentials)

	_, err = s.DeleteTimeEntry(context.Background(), "gid://gitlab/Timelog/1")
	assert.ErrorIs(t, err, gitlab.ErrNoCredentials)
}

func TestTimelogsResolvesUserThenCaches(t *testing.T) {
	userCalls, fetchCalls := 0, 0
	var gotFrom, gotTo time.Time
	remote := &fakeRemote{
		currentUser: func() (*model.User, error) {
			userCalls++
			return alice(), nil
		},
		timeEntries: func(username string, from, to time.Time) ([]model.TimeEntry, error) {
			fetchCalls++
			require.Equal(t, "alice", username, "user must be resolved before the entries fetch")
			gotFrom, gotTo = from, to
			return []model.TimeEntry{
				{ID: "t1", TimeSpent: 3600, SpentAt: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	s := newTestSession(t, remote)

	entries, err := s.Timelogs(context.Background(), "2024-03", false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, userCalls)
	assert.Equal(t, 1, fetchCalls)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), gotTo)

	// Second read comes from the cache; the memoized user is reused too.
	entries, err = s.Timelogs(context.Background(), "2024-03", false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, userCalls)
	assert.Equal(t, 1, fetchCalls)

	// Forced reload bypasses the cache.
	_, err = s.Timelogs(context.Background(), "2024-03", true)
	require.NoError(t, err)
	assert.Equal(t, 2, fetchCalls)
}

func TestAddTimeEntryClearsOnlyItsPeriod(t *testing.T) {
	remote := &fakeRemote{
		getIssue: func(fullPath string, iid int) (*model.Issue, []model.TimeEntry, error) {
			return &model.Issue{ID: "gid://gitlab/Issue/10", IID: iid}, nil, nil
		},
		addEntry: func(issueID, duration string, spentAt *time.Time, summary string) (*model.TimeEntry, error) {
			assert.Equal(t, "1h30m", duration)
			return &model.TimeEntry{
				ID:        "gid://gitlab/Timelog/9",
				TimeSpent: 5400,
				SpentAt:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	s := newTestSession(t, remote)

	require.NoError(t, s.Cache.PutTimeEntries("2024-03", []model.TimeEntry{{ID: "old"}}))
	require.NoError(t, s.Cache.PutTimeEntries("2024-04", []model.TimeEntry{{ID: "keep"}}))

	added := 0
	s.OnTimeEntryAdded = func(e model.TimeEntry) { added++ }

	_, err := s.AddTimeEntry(context.Background(), "grp/one", 7, "1h30m", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	_, ok := s.Cache.GetTimeEntries("2024-03")
	assert.False(t, ok, "the affected period must be cleared")
	_, ok = s.Cache.GetTimeEntries("2024-04")
	assert.True(t, ok, "other periods must stay cached")
}

func TestAddTimeEntryRejectsBadDuration(t *testing.T) {
	calls := 0
	remote := &fakeRemote{
		getIssue: func(string, int) (*model.Issue, []model.TimeEntry, error) {
			calls++
			return nil, nil, nil
		},
	}
	s := newTestSession(t, remote)

	_, err := s.AddTimeEntry(context.Background(), "grp/one", 7, "ninety minutes", nil, "")
	require.Error(t, err)
	assert.Equal(t, 0, calls, "invalid duration must fail before any remote call")
}

func TestDeleteTimeEntryClearsExactlyItsPeriod(t *testing.T) {
	remote := &fakeRemote{
		deleteEntry: func(entryID string) (*model.TimeEntry, error) {
			return &model.TimeEntry{
				ID:        entryID,
				TimeSpent: 1800,
				SpentAt:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	s := newTestSession(t, remote)

	require.NoError(t, s.Cache.PutTimeEntries("2024-02", []model.TimeEntry{{ID: "feb"}}))
	require.NoError(t, s.Cache.PutTimeEntries("2024-03", []model.TimeEntry{{ID: "mar"}}))
	require.NoError(t, s.Cache.PutTimeEntries("2024-04", []model.TimeEntry{{ID: "apr"}}))

	deleted := 0
	s.OnTimeEntryDeleted = func(e model.TimeEntry) { deleted++ }

	_, err := s.DeleteTimeEntry(context.Background(), "gid://gitlab/Timelog/9")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, ok := s.Cache.GetTimeEntries("2024-03")
	assert.False(t, ok)
	_, ok = s.Cache.GetTimeEntries("2024-02")
	assert.True(t, ok)
	_, ok = s.Cache.GetTimeEntries("2024-04")
	assert.True(t, ok)
}

func TestDeleteTimeEntryWithoutSpentDateClearsAllPeriods(t *testing.T) {
	remote := &fakeRemote{
		deleteEntry: func(entryID string) (*model.TimeEntry, error) {
			// No spent date: the entry cannot be mapped to one period.
			return &model.TimeEntry{ID: entryID, TimeSpent: 600}, nil
		},
	}
	s := newTestSession(t, remote)

	require.NoError(t, s.Cache.PutTimeEntries("2024-02", []model.TimeEntry{{ID: "feb"}}))
	require.NoError(t, s.Cache.PutTimeEntries("2024-03", []model.TimeEntry{{ID: "mar"}}))
	require.NoError(t, s.Cache.PutProjects([]model.Project{{ID: "1", FullPath: "grp/one"}}))

	_, err := s.DeleteTimeEntry(context.Background(), "gid://gitlab/Timelog/9")
	require.NoError(t, err)

	_, ok := s.Cache.GetTimeEntries("2024-02")
	assert.False(t, ok)
	_, ok = s.Cache.GetTimeEntries("2024-03")
	assert.False(t, ok)
	_, ok = s.Cache.GetProjects()
	assert.True(t, ok, "only the time-entry kind is invalidated")
}

func TestPagerNeverReusesCursorAcrossTargets(t *testing.T) {
	var afters []string
	remote := &fakeRemote{
		listIssues: func(fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error) {
			afters = append(afters, opts.After)
			return []model.Issue{{ID: fullPath + "-1"}},
				model.PageInfo{HasNextPage: false, EndCursor: "cursor-" + fullPath}, nil
		},
	}
	s := newTestSession(t, remote)

	// Filtered listings go straight to the remote.
	opts := gitlab.IssueOpts{Search: "x"}
	_, err := s.Issues(context.Background(), "a/b", opts, false)
	require.NoError(t, err)
	_, err = s.Issues(context.Background(), "a/c", opts, false)
	require.NoError(t, err)
	_, err = s.Issues(context.Background(), "a/b", opts, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "", ""}, afters,
		"every new view must start without a carried-over cursor")
}

func TestPagerAccumulatesWithinOneView(t *testing.T) {
	calls := 0
	remote := &fakeRemote{
		listProjects: func(search, after string) ([]model.Project, model.PageInfo, error) {
			calls++
			if calls == 1 {
				require.Equal(t, "", after)
				return []model.Project{{ID: "1", FullPath: "a"}, {ID: "2", FullPath: "b"}},
					model.PageInfo{HasNextPage: true, EndCursor: "p2"}, nil
			}
			require.Equal(t, "p2", after, "second page must use the first page's cursor")
			return []model.Project{{ID: "3", FullPath: "c"}},
				model.PageInfo{HasNextPage: false}, nil
		},
	}
	s := newTestSession(t, remote)

	projects, err := s.Projects(context.Background(), "", false)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 3, s.Pager().Seen)
}

func TestRetryAfterPageErrorRestartsFromBeginning(t *testing.T) {
	var afters []string
	remote := &fakeRemote{
		listProjects: func(search, after string) ([]model.Project, model.PageInfo, error) {
			afters = append(afters, after)
			switch len(afters) {
			case 1, 3:
				return []model.Project{{ID: "1", FullPath: "a"}, {ID: "2", FullPath: "b"}},
					model.PageInfo{HasNextPage: true, EndCursor: "p2"}, nil
			case 2:
				return nil, model.PageInfo{}, errors.New("transient remote failure")
			default:
				return []model.Project{{ID: "3", FullPath: "c"}},
					model.PageInfo{HasNextPage: false}, nil
			}
		},
	}
	s := newTestSession(t, remote)

	_, err := s.Projects(context.Background(), "", false)
	require.Error(t, err)
	_, ok := s.Cache.GetProjects()
	assert.False(t, ok, "a failed fetch must not populate the cache")

	projects, err := s.Projects(context.Background(), "", false)
	require.NoError(t, err)
	assert.Len(t, projects, 3, "retry must refetch the whole listing, not resume mid-way")
	assert.Equal(t, []string{"", "p2", "", "p2"}, afters)

	cached, ok := s.Cache.GetProjects()
	require.True(t, ok)
	assert.Len(t, cached, 3, "cached plain listing must be the complete listing")
}

func TestSupersededViewIsDiscarded(t *testing.T) {
	remote := &fakeRemote{}
	var s *Session
	remote.listIssues = func(fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error) {
		// Simulate the user navigating away while this request is in flight.
		s.beginView("issues:elsewhere")
		return []model.Issue{{ID: "stale"}}, model.PageInfo{HasNextPage: true, EndCursor: "p2"}, nil
	}
	s = newTestSession(t, remote)

	_, err := s.Issues(context.Background(), "a/b", gitlab.IssueOpts{Search: "x"}, false)
	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestProjectsSortFavoritesFirst(t *testing.T) {
	remote := &fakeRemote{
		listProjects: func(search, after string) ([]model.Project, model.PageInfo, error) {
			return []model.Project{
				{ID: "1", FullPath: "grp/alpha"},
				{ID: "2", FullPath: "grp/beta"},
				{ID: "3", FullPath: "grp/gamma"},
			}, model.PageInfo{}, nil
		},
	}
	s := newTestSession(t, remote)
	_, err := s.Favorites.ToggleProject("3")
	require.NoError(t, err)

	projects, err := s.Projects(context.Background(), "", false)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "3", projects[0].ID, "favorites sort first")
	assert.Equal(t, "1", projects[1].ID)
	assert.Equal(t, "2", projects[2].ID)
}

func TestProjectSearchBypassesCache(t *testing.T) {
	require := require.New(t)

	calls := 0
	remote := &fakeRemote{
		listProjects: func(search, after string) ([]model.Project, model.PageInfo, error) {
			calls++
			require.Equal("widget", search)
			return []model.Project{{ID: "9", FullPath: "grp/widget"}}, model.PageInfo{}, nil
		},
	}
	s := newTestSession(t, remote)
	cached := []model.Project{{ID: "1", FullPath: "grp/cached"}}
	require.NoError(s.Cache.PutProjects(cached))

	got, err := s.Projects(context.Background(), "widget", false)
	require.NoError(err)
	require.Len(got, 1)
	require.Equal("grp/widget", got[0].FullPath)
	require.Equal(1, calls)

	// The cached plain listing stays untouched by search results.
	stillCached, ok := s.Cache.GetProjects()
	require.True(ok)
	require.Equal(cached, stillCached)
}

func TestIssuesCachedPerProjectPath(t *testing.T) {
	calls := map[string]int{}
	remote := &fakeRemote{
		listIssues: func(fullPath string, opts gitlab.IssueOpts) ([]model.Issue, model.PageInfo, error) {
			calls[fullPath]++
			return []model.Issue{{ID: fullPath, IID: 1, Labels: []string{}}}, model.PageInfo{}, nil
		},
	}
	s := newTestSession(t, remote)

	_, err := s.Issues(context.Background(), "a/b", gitlab.IssueOpts{}, false)
	require.NoError(t, err)
	_, err = s.Issues(context.Background(), "a/c", gitlab.IssueOpts{}, false)
	require.NoError(t, err)
	_, err = s.Issues(context.Background(), "a/b", gitlab.IssueOpts{}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, calls["a/b"], "second a/b read must come from the cache")
	assert.Equal(t, 1, calls["a/c"])
}

func TestViewGenerationBookkeeping(t *testing.T) {
	s := newTestSession(t, &fakeRemote{})

	gen1 := s.beginView("projects:")
	assert.True(t, s.currentView(gen1))

	gen2 := s.beginView("issues:a/b")
	assert.False(t, s.currentView(gen1), "an older view token must be stale")
	assert.True(t, s.currentView(gen2))
	assert.Equal(t, "issues:a/b", s.Pager().Target)
}
