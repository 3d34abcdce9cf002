// Package mention builds the candidate list shown after an "@" trigger in
// the chat composer.
package mention

import (
	"strings"
	"time"

	"notedesk/internal/model"
)

// Kind of a mention option.
type Kind string

const (
	KindPage Kind = "page"
	KindDate Kind = "date"
)

const (
	iconPage  = "📝"
	iconDate  = "📅"
	iconEvent = "⏰"

	descPage  = "Page"
	descDate  = "Date"
	descEvent = "Event"
)

// Default layouts mirror a US-English locale.
const (
	DefaultDateLayout     = "1/2/2006"
	DefaultDateTimeLayout = "1/2/2006, 3:04:05 PM"
)

// Option is one insertable reference. Value is the literal text placed
// into the compose box and always starts with "@".
type Option struct {
	Type        Kind   `json:"type"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Result groups options as they are rendered.
type Result struct {
	PageOptions []Option `json:"pageOptions"`
	DateOptions []Option `json:"dateOptions"`
}

// Resolver carries the locale-ish settings used to build date options.
type Resolver struct {
	// Location is the display timezone. Nil means time.Local.
	Location *time.Location
	// NextWeekday and NextHour/NextMinute define the fixed
	// "Next <weekday> <time>" suggestion.
	NextWeekday time.Weekday
	NextHour    int
	NextMinute  int
	// CalendarAccess enables event options.
	CalendarAccess bool

	DateLayout     string
	DateTimeLayout string

	// Now is overridable for tests.
	Now func() time.Time
}

// NewResolver returns a Resolver with the default Tuesday 3PM suggestion.
func NewResolver(loc *time.Location, calendarAccess bool) *Resolver {
	return &Resolver{
		Location:       loc,
		NextWeekday:    time.Tuesday,
		NextHour:       15,
		CalendarAccess: calendarAccess,
	}
}

// Resolve matches search case-insensitively as a substring of each
// candidate's label. An empty search matches everything. Pages come first
// in their given order; date options are Today, Tomorrow, the fixed next
// weekday, then matching events when calendar access is enabled.
func (r *Resolver) Resolve(search string, pages []model.Page, events []model.Event) Result {
	needle := strings.ToLower(search)
	matches := func(label string) bool {
		return strings.Contains(strings.ToLower(label), needle)
	}

	res := Result{
		PageOptions: make([]Option, 0),
		DateOptions: make([]Option, 0),
	}

	for _, p := range pages {
		if !matches(p.Title) {
			continue
		}
		res.PageOptions = append(res.PageOptions, Option{
			Type:        KindPage,
			Label:       p.Title,
			Value:       "@" + p.Title,
			Icon:        iconPage,
			Description: descPage,
		})
	}

	for _, d := range r.fixedDates() {
		if !matches(d.label) {
			continue
		}
		res.DateOptions = append(res.DateOptions, Option{
			Type:        KindDate,
			Label:       d.label,
			Value:       "@" + d.value,
			Icon:        iconDate,
			Description: descDate,
		})
	}

	if r.CalendarAccess {
		loc := r.location()
		for _, ev := range events {
			if !matches(ev.Title) {
				continue
			}
			res.DateOptions = append(res.DateOptions, Option{
				Type:        KindDate,
				Label:       ev.Title,
				Value:       "@" + ev.Start(loc).Format(r.dateTimeLayout()) + " - " + ev.Title,
				Icon:        iconEvent,
				Description: descEvent,
			})
		}
	}

	return res
}

type fixedDate struct {
	label string
	value string
}

func (r *Resolver) fixedDates() []fixedDate {
	now := r.now()
	tomorrow := now.AddDate(0, 0, 1)
	next := NextOccurrence(now, r.NextWeekday, r.NextHour, r.NextMinute)

	return []fixedDate{
		{label: "Today", value: now.Format(r.dateLayout())},
		{label: "Tomorrow", value: tomorrow.Format(r.dateLayout())},
		{label: NextLabel(r.NextWeekday, r.NextHour, r.NextMinute), value: next.Format(r.dateTimeLayout())},
	}
}

// NextOccurrence returns the given weekday and wall-clock time on the
// first matching day strictly after now's calendar day.
func NextOccurrence(now time.Time, wd time.Weekday, hour, minute int) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
}

// NextLabel renders e.g. "Next Tuesday 3PM" or "Next Friday 9:30AM".
func NextLabel(wd time.Weekday, hour, minute int) string {
	t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	layout := "3PM"
	if minute != 0 {
		layout = "3:04PM"
	}
	return "Next " + wd.String() + " " + t.Format(layout)
}

func (r *Resolver) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().In(r.location())
	}
	return time.Now().In(r.location())
}

func (r *Resolver) dateLayout() string {
	if r.DateLayout == "" {
		return DefaultDateLayout
	}
	return r.DateLayout
}

func (r *Resolver) dateTimeLayout() string {
	if r.DateTimeLayout == "" {
		return DefaultDateTimeLayout
	}
	return r.DateTimeLayout
}
