package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "notedesk/internal/log"
	"notedesk/internal/model"
)

// DefaultMaxInstances caps the expansion of a single recurring event.
const DefaultMaxInstances = 2000

// ErrInvalidWindow is returned when to is before from.
var ErrInvalidWindow = errors.New("expand: window end before start")

// Window is the half-open range [From, To) events are expanded into.
type Window struct {
	From time.Time
	To   time.Time
	// MaxInstances defaults to DefaultMaxInstances.
	MaxInstances int
}

// Expand turns parsed entries into concrete events inside w, ordered by
// start. Recurring entries are expanded with their RRULE and EXDATEs and
// RECURRENCE-ID overrides replace the matching instance. CalendarID is
// left for the caller.
func Expand(entries []Entry, w Window) ([]model.Event, error) {
	if w.To.Before(w.From) {
		return nil, ErrInvalidWindow
	}
	if w.MaxInstances <= 0 {
		w.MaxInstances = DefaultMaxInstances
	}

	bases := make([]Entry, 0, len(entries))
	overrides := make(map[string][]Entry)
	for _, e := range entries {
		if e.Override() {
			overrides[e.UID] = append(overrides[e.UID], e)
			continue
		}
		bases = append(bases, e)
	}

	matched := make(map[string][]bool, len(overrides))
	for uid, ovs := range overrides {
		matched[uid] = make([]bool, len(ovs))
	}

	out := make([]model.Event, 0)
	for _, base := range bases {
		ovs, used := overrides[base.UID], matched[base.UID]
		if base.RRule == "" {
			src, start, end := base, base.Start, base.End
			if i := matchOverride(ovs, used, start); i >= 0 {
				src, start, end = ovs[i], ovs[i].Start, ovs[i].End
			}
			if inWindow(start, end, w) {
				out = append(out, toEvent(src, start, end))
			}
			continue
		}
		out = append(out, expandRecurring(base, ovs, used, w)...)
	}

	// Overrides whose original instance was never expanded (it lies outside
	// the window, or the base VEVENT is missing) stand on their own.
	for uid, ovs := range overrides {
		for i, ov := range ovs {
			if matched[uid][i] || !inWindow(ov.Start, ov.End, w) {
				continue
			}
			out = append(out, toEvent(ov, ov.Start, ov.End))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].EndTime < out[j].EndTime
	})
	return out, nil
}

func expandRecurring(base Entry, overrides []Entry, used []bool, w Window) []model.Event {
	r, err := rrule.StrToRRule(base.RRule)
	if err != nil {
		appLog.Error("rrule parse failed", err, "uid", base.UID, "rrule", base.RRule)
		return nil
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range base.ExDates {
		set.ExDate(ex.In(base.Start.Location()))
	}

	dur := base.End.Sub(base.Start)
	days := 0
	if base.AllDay {
		days = int(dur.Hours()/24 + 0.5)
		if days < 1 {
			days = 1
		}
	}

	// Instances that started before From may still overlap it.
	from := w.From.Add(-dur).In(base.Start.Location())
	starts := set.Between(from, w.To.In(base.Start.Location()), true)
	if len(starts) > w.MaxInstances {
		appLog.Error("rrule expansion truncated", errors.New("instance cap reached"),
			"uid", base.UID, "cap", w.MaxInstances)
		starts = starts[:w.MaxInstances]
	}

	out := make([]model.Event, 0, len(starts))
	for _, start := range starts {
		end := start.Add(dur)
		if base.AllDay {
			end = start.AddDate(0, 0, days)
		}

		src := base
		if i := matchOverride(overrides, used, start); i >= 0 {
			src, start, end = overrides[i], overrides[i].Start, overrides[i].End
		}
		if !inWindow(start, end, w) {
			continue
		}
		out = append(out, toEvent(src, start, end))
	}
	return out
}

// matchOverride returns the index of the unused override for the instance
// at start and marks it used, or -1.
func matchOverride(overrides []Entry, used []bool, start time.Time) int {
	for i, ov := range overrides {
		if !used[i] && ov.RecurrenceID.Equal(start) {
			used[i] = true
			return i
		}
	}
	return -1
}

// inWindow uses the same half-open intersection as the day views, and keeps
// zero-length events that start inside the window.
func inWindow(start, end time.Time, w Window) bool {
	if !start.Before(w.To) {
		return false
	}
	if end.Equal(start) {
		return !start.Before(w.From)
	}
	return end.After(w.From)
}

func toEvent(e Entry, start, end time.Time) model.Event {
	return model.Event{
		UID:         e.UID,
		Title:       e.Summary,
		Description: e.Description,
		Location:    e.Location,
		URL:         e.URL,
		StartTime:   start.UnixMilli(),
		EndTime:     end.UnixMilli(),
		AllDay:      e.AllDay,
	}
}
