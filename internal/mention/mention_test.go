package mention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedesk/internal/model"
)

// Thursday afternoon.
var fixedNow = time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)

func newTestResolver(calendar bool) *Resolver {
	r := NewResolver(time.UTC, calendar)
	r.Now = func() time.Time { return fixedNow }
	return r
}

func labels(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Label)
	}
	return out
}

func TestResolveEmptySearch(t *testing.T) {
	r := newTestResolver(false)
	pages := []model.Page{{ID: "p1", Title: "Plan"}}

	res := r.Resolve("", pages, []model.Event{{Title: "Sync", StartTime: fixedNow.Add(time.Hour).UnixMilli()}})

	require.Len(t, res.PageOptions, 1)
	assert.Equal(t, Option{Type: KindPage, Label: "Plan", Value: "@Plan", Icon: "📝", Description: "Page"}, res.PageOptions[0])

	assert.Equal(t, []string{"Today", "Tomorrow", "Next Tuesday 3PM"}, labels(res.DateOptions))
	assert.Equal(t, "@10/15/2026", res.DateOptions[0].Value)
	assert.Equal(t, "@10/16/2026", res.DateOptions[1].Value)
	assert.Equal(t, "@10/20/2026, 3:00:00 PM", res.DateOptions[2].Value)
	for _, o := range res.DateOptions {
		assert.Equal(t, KindDate, o.Type)
		assert.Equal(t, "📅", o.Icon)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := newTestResolver(false)
	res := r.Resolve("plan", []model.Page{{Title: "Plan"}, {Title: "Notes"}}, nil)
	assert.Equal(t, []string{"Plan"}, labels(res.PageOptions))
	assert.Empty(t, res.DateOptions)

	res = r.Resolve("TOM", nil, nil)
	assert.Equal(t, []string{"Tomorrow"}, labels(res.DateOptions))
}

func TestResolveNoMatch(t *testing.T) {
	r := newTestResolver(true)
	res := r.Resolve("zzz", []model.Page{{Title: "Plan"}}, []model.Event{{Title: "Review"}})
	assert.NotNil(t, res.PageOptions)
	assert.NotNil(t, res.DateOptions)
	assert.Empty(t, res.PageOptions)
	assert.Empty(t, res.DateOptions)
}

func TestResolveEventsNeedCalendarAccess(t *testing.T) {
	events := []model.Event{
		{Title: "Design review", StartTime: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC).UnixMilli()},
		{Title: "Lunch", StartTime: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC).UnixMilli()},
	}

	off := newTestResolver(false).Resolve("review", nil, events)
	assert.Empty(t, off.DateOptions)

	on := newTestResolver(true).Resolve("review", nil, events)
	require.Len(t, on.DateOptions, 1)
	assert.Equal(t, Option{
		Type:        KindDate,
		Label:       "Design review",
		Value:       "@10/16/2026, 9:00:00 AM - Design review",
		Icon:        "⏰",
		Description: "Event",
	}, on.DateOptions[0])

	all := newTestResolver(true).Resolve("", nil, events)
	assert.Equal(t, []string{"Today", "Tomorrow", "Next Tuesday 3PM", "Design review", "Lunch"}, labels(all.DateOptions))
}

func TestNextOccurrence(t *testing.T) {
	got := NextOccurrence(fixedNow, time.Thursday, 9, 0)
	assert.Equal(t, time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC), got, "same weekday rolls a full week")

	got = NextOccurrence(fixedNow, time.Friday, 9, 30)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), got)
}

func TestNextLabel(t *testing.T) {
	assert.Equal(t, "Next Tuesday 3PM", NextLabel(time.Tuesday, 15, 0))
	assert.Equal(t, "Next Friday 9:30AM", NextLabel(time.Friday, 9, 30))
}
