package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedesk/internal/model"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) int64 {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute).UnixMilli()
}

func ev(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: id, StartTime: at(sh, sm), EndTime: at(eh, em)}
}

func byID(out []model.PositionedEvent) map[string]model.PositionedEvent {
	m := make(map[string]model.PositionedEvent, len(out))
	for _, p := range out {
		m[p.ID] = p
	}
	return m
}

func TestDayScenario(t *testing.T) {
	out := Day([]model.Event{
		ev("E3", 11, 0, 12, 0),
		ev("E2", 9, 30, 10, 30),
		ev("E1", 9, 0, 10, 0),
	})
	require.Len(t, out, 3)

	got := byID(out)
	assert.Equal(t, 0, got["E1"].Column)
	assert.Equal(t, 2, got["E1"].TotalColumns)
	assert.Equal(t, 1, got["E2"].Column)
	assert.Equal(t, 2, got["E2"].TotalColumns)
	assert.Equal(t, 0, got["E3"].Column)
	assert.Equal(t, 1, got["E3"].TotalColumns)
}

func TestDaySingleEvent(t *testing.T) {
	out := Day([]model.Event{ev("only", 8, 0, 9, 0)})
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Column)
	assert.Equal(t, 1, out[0].TotalColumns)
}

func TestDayEmpty(t *testing.T) {
	out := Day(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDayChainUsesThreeColumns(t *testing.T) {
	out := byID(Day([]model.Event{
		ev("A", 9, 0, 10, 0),
		ev("B", 9, 30, 11, 0),
		ev("C", 10, 30, 12, 0),
	}))
	assert.Equal(t, 0, out["A"].Column)
	assert.Equal(t, 1, out["B"].Column)
	assert.Equal(t, 2, out["C"].Column)
	for _, p := range out {
		assert.Equal(t, 3, p.TotalColumns)
	}
}

func TestDayIdenticalIntervalsShareCluster(t *testing.T) {
	out := Day([]model.Event{
		ev("first", 14, 0, 15, 0),
		ev("second", 14, 0, 15, 0),
	})
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].ID)
	assert.Equal(t, 0, out[0].Column)
	assert.Equal(t, "second", out[1].ID)
	assert.Equal(t, 1, out[1].Column)
	assert.Equal(t, 2, out[1].TotalColumns)
}

func TestDayAdjacentEventsDoNotOverlap(t *testing.T) {
	out := Day([]model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 10, 0, 11, 0),
	})
	for _, p := range out {
		assert.Equal(t, 0, p.Column)
		assert.Equal(t, 1, p.TotalColumns)
	}
}

func TestDayZeroDurationInsideEvent(t *testing.T) {
	out := byID(Day([]model.Event{
		ev("long", 9, 0, 11, 0),
		ev("point", 10, 0, 10, 0),
	}))
	assert.Equal(t, 2, out["point"].TotalColumns)
	assert.Equal(t, 1, out["point"].Column)
}

func TestDayProperties(t *testing.T) {
	input := []model.Event{
		ev("a", 8, 0, 9, 30),
		ev("b", 9, 0, 10, 0),
		ev("c", 9, 15, 9, 45),
		ev("d", 12, 0, 13, 0),
		ev("e", 12, 30, 14, 0),
		ev("f", 15, 0, 16, 0),
		ev("g", 7, 0, 7, 30),
	}
	first := Day(input)
	second := Day(input)
	assert.Equal(t, first, second)

	for i, p := range first {
		assert.GreaterOrEqual(t, p.Column, 0)
		assert.Less(t, p.Column, p.TotalColumns)
		for _, q := range first[i+1:] {
			if Overlaps(p.StartTime, p.EndTime, q.StartTime, q.EndTime) {
				assert.NotEqual(t, p.Column, q.Column, "%s and %s overlap", p.ID, q.ID)
			}
		}
	}
}

func TestPlace(t *testing.T) {
	p := model.PositionedEvent{Event: ev("x", 6, 0, 12, 0), Column: 1, TotalColumns: 4}
	g := Place(p, day)
	assert.InDelta(t, 25, g.TopPercent, 1e-9)
	assert.InDelta(t, 25, g.HeightPercent, 1e-9)
	assert.InDelta(t, 25, g.LeftPercent, 1e-9)
	assert.InDelta(t, 25, g.WidthPercent, 1e-9)

	late := model.PositionedEvent{Event: ev("y", 23, 0, 23, 0), TotalColumns: 1}
	late.EndTime = day.Add(26 * time.Hour).UnixMilli()
	g = Place(late, day)
	assert.InDelta(t, 100, g.TopPercent+g.HeightPercent, 1e-9)
}

func TestEventsOnDay(t *testing.T) {
	events := []model.Event{
		ev("in", 9, 0, 10, 0),
		{ID: "before", StartTime: day.Add(-time.Hour).UnixMilli(), EndTime: day.Add(time.Hour).UnixMilli()},
		{ID: "next", StartTime: day.AddDate(0, 0, 1).UnixMilli(), EndTime: day.AddDate(0, 0, 1).Add(time.Hour).UnixMilli()},
	}
	got := EventsOnDay(events, day)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestWeekStart(t *testing.T) {
	thu := time.Date(2026, 3, 5, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), WeekStart(thu, time.Monday))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WeekStart(thu, time.Sunday))

	sun := time.Date(2026, 3, 8, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), WeekStart(sun, time.Monday))
}
