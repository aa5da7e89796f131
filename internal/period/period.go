// Package period buckets flat time-entry lists into week and day groups for
// calendar display. Everything here is a pure function over in-memory data;
// buckets are recomputed per render and never persisted.
package period

import (
	"fmt"
	"sort"
	"time"

	"github.com/ufrutov/gitlab-client/internal/model"
)

// Key returns the "YYYY-MM" period key for t. Time entries are cached
// partitioned by this key.
func Key(t time.Time) string {
	return t.Format("2006-01")
}

// ParseKey parses a "YYYY-MM" period key into the first day of that month
// in the given location.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period key %q (want YYYY-MM): %w", key, err)
	}
	return t, nil
}

// MonthWindow returns the first and last calendar day of t's month,
// both at midnight in t's location.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return first, last
}

// WeekStart returns the Monday 00:00 of the week containing t.
// Sunday counts as the seventh day of the preceding week.
func WeekStart(t time.Time) time.Time {
	back := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		back = 6
	}
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// DayBucket groups one calendar day's entries.
type DayBucket struct {
	Date         time.Time
	Entries      []model.TimeEntry
	TotalSeconds int64
}

// WeekBucket groups one Monday-aligned week's entries by day.
type WeekBucket struct {
	Start        time.Time
	Days         []DayBucket
	TotalSeconds int64
}

// BucketByWeek groups entries into the Monday-aligned weeks of the month
// containing referenceMonth. Weeks are pre-seeded even when empty, but
// seeding stops at now: future weeks within the month never appear before
// they arrive chronologically. Entries whose week has no pre-seeded bucket
// are silently dropped; that mirrors how a per-month fetch window behaves at
// its edges and is a policy, not an error.
//
// The returned weeks are sorted most recent first; total is the number of
// entries that landed in a bucket. Durations stay in whole seconds.
func BucketByWeek(entries []model.TimeEntry, referenceMonth, now time.Time) ([]WeekBucket, int) {
	loc := referenceMonth.Location()
	first, last := MonthWindow(referenceMonth)

	end := last
	if today := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc); today.Before(end) {
		end = today
	}
	if end.Before(first) {
		return nil, 0
	}

	// Pre-seed every week intersecting [first, end].
	weeks := map[string]*WeekBucket{}
	for ws := WeekStart(first); !ws.After(end); ws = ws.AddDate(0, 0, 7) {
		weeks[ws.Format("2006-01-02")] = &WeekBucket{Start: ws}
	}

	// Assign entries to their week, grouping by local calendar day.
	days := map[string]map[string]*DayBucket{}
	total := 0
	for _, e := range entries {
		spent := e.SpentAt.In(loc)
		wk := WeekStart(spent).Format("2006-01-02")
		week, ok := weeks[wk]
		if !ok {
			continue // outside the generated weeks: dropped
		}
		dk := spent.Format("2006-01-02")
		if days[wk] == nil {
			days[wk] = map[string]*DayBucket{}
		}
		day := days[wk][dk]
		if day == nil {
			day = &DayBucket{Date: time.Date(spent.Year(), spent.Month(), spent.Day(), 0, 0, 0, 0, loc)}
			days[wk][dk] = day
		}
		day.Entries = append(day.Entries, e)
		day.TotalSeconds += e.TimeSpent
		week.TotalSeconds += e.TimeSpent
		total++
	}

	// Days ascending within each week, weeks descending overall.
	out := make([]WeekBucket, 0, len(weeks))
	for wk, week := range weeks {
		for _, day := range days[wk] {
			week.Days = append(week.Days, *day)
		}
		sort.Slice(week.Days, func(i, j int) bool {
			return week.Days[i].Date.Before(week.Days[j].Date)
		})
		out = append(out, *week)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.After(out[j].Start)
	})
	return out, total
}
