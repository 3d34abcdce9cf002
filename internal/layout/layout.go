// Package layout assigns side-by-side columns to overlapping events of a
// single calendar day.
package layout

import (
	"sort"
	"time"

	"notedesk/internal/model"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && bStart < aEnd
}

// Day computes a PositionedEvent for every input event.
//
// Events are ordered by start time (stable, ties keep input order). Each
// not-yet-placed event seeds an overlap cluster: every event reachable from
// it through pairwise overlaps. Members of the cluster take their index in
// start-time order as column and the cluster size as total columns. The
// packing is greedy: a chain A-B-C where A and C do not touch still uses
// three columns.
//
// Inverted or zero-length intervals are not rejected; they are placed by
// the same overlap test. The output is in start-time order.
func Day(events []model.Event) []model.PositionedEvent {
	if len(events) == 0 {
		return []model.PositionedEvent{}
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	out := make([]model.PositionedEvent, len(sorted))
	placed := make([]bool, len(sorted))

	for i := range sorted {
		if placed[i] {
			continue
		}
		members := cluster(sorted, i)
		for col, idx := range members {
			placed[idx] = true
			out[idx] = model.PositionedEvent{
				Event:        sorted[idx],
				Column:       col,
				TotalColumns: len(members),
			}
		}
	}

	return out
}

// cluster returns the indexes (ascending, which is start-time order) of
// all events transitively overlapping sorted[seed].
func cluster(sorted []model.Event, seed int) []int {
	in := map[int]bool{seed: true}
	queue := []int{seed}
	for len(queue) > 0 {
		cur := sorted[queue[0]]
		queue = queue[1:]
		for j := range sorted {
			if in[j] {
				continue
			}
			if Overlaps(cur.StartTime, cur.EndTime, sorted[j].StartTime, sorted[j].EndTime) {
				in[j] = true
				queue = append(queue, j)
			}
		}
	}

	members := make([]int, 0, len(in))
	for idx := range in {
		members = append(members, idx)
	}
	sort.Ints(members)
	return members
}

// Geometry is the relative placement of a positioned event inside a day
// column, in percent of the column's height and width.
type Geometry struct {
	TopPercent    float64 `json:"topPercent"`
	HeightPercent float64 `json:"heightPercent"`
	LeftPercent   float64 `json:"leftPercent"`
	WidthPercent  float64 `json:"widthPercent"`
}

// Place computes the Geometry of p inside the day starting at dayStart.
// Vertical extent is clamped to the day.
func Place(p model.PositionedEvent, dayStart time.Time) Geometry {
	dayMs := float64(24 * time.Hour / time.Millisecond)
	from := dayStart.UnixMilli()

	top := float64(p.StartTime-from) / dayMs * 100
	bottom := float64(p.EndTime-from) / dayMs * 100
	top = clamp(top, 0, 100)
	bottom = clamp(bottom, top, 100)

	total := p.TotalColumns
	if total < 1 {
		total = 1
	}
	return Geometry{
		TopPercent:    top,
		HeightPercent: bottom - top,
		LeftPercent:   float64(p.Column) * 100 / float64(total),
		WidthPercent:  100 / float64(total),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EventsOnDay filters events whose start falls within [dayStart, dayStart+24h).
func EventsOnDay(events []model.Event, dayStart time.Time) []model.Event {
	from := dayStart.UnixMilli()
	to := dayStart.AddDate(0, 0, 1).UnixMilli()
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.StartTime >= from && ev.StartTime < to {
			out = append(out, ev)
		}
	}
	return out
}

// WeekStart returns midnight of the first day of the week containing t,
// in t's location. firstDay is time.Monday or time.Sunday.
func WeekStart(t time.Time, firstDay time.Weekday) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) - int(firstDay) + 7) % 7
	return day.AddDate(0, 0, -offset)
}
