package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/ufrutov/gitlab-client/internal/model"
	"github.com/ufrutov/gitlab-client/internal/period"
)

func TestRenderMonthShowsZeroSecondEntries(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	weeks := []period.WeekBucket{
		{
			Start: day,
			Days: []period.DayBucket{
				{
					Date: day,
					Entries: []model.TimeEntry{
						{
							ID:      "t1",
							SpentAt: day,
							Issue:   model.IssueRef{ProjectPath: "grp/one", IID: 7, Title: "Broken build"},
						},
					},
				},
			},
		},
	}

	out := RenderMonth("March 2024", weeks, 1)
	if !strings.Contains(out, "grp/one#7") {
		t.Errorf("zero-second entry missing from output:\n%s", out)
	}
	if strings.Contains(out, "no time logged") {
		t.Errorf("week with entries rendered as empty:\n%s", out)
	}
}

func TestRenderMonthEmptyWeek(t *testing.T) {
	weeks := []period.WeekBucket{
		{Start: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{
			Start: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Days: []period.DayBucket{
				{
					Date:         time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
					TotalSeconds: 3600,
					Entries: []model.TimeEntry{
						{ID: "t1", TimeSpent: 3600, Issue: model.IssueRef{ProjectPath: "grp/one", IID: 7}},
					},
				},
			},
			TotalSeconds: 3600,
		},
	}

	out := RenderMonth("March 2024", weeks, 1)
	if !strings.Contains(out, "no time logged") {
		t.Errorf("entry-less week not marked empty:\n%s", out)
	}
	if !strings.Contains(out, "1h 0m") {
		t.Errorf("day total missing:\n%s", out)
	}
}
