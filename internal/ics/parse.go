package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "notedesk/internal/log"
)

// ErrEmptyBody is returned when there is nothing to parse.
var ErrEmptyBody = errors.New("empty ICS body")

// Entry is one VEVENT before recurrence expansion.
type Entry struct {
	UID         string
	Sequence    int
	Summary     string
	Description string
	Location    string
	URL         string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on overrides of a single recurring instance.
	RecurrenceID *time.Time
}

// Override reports whether e replaces one instance of a recurring event.
func (e Entry) Override() bool { return e.RecurrenceID != nil }

// Parse decodes an ICS body. Floating and all-day times are interpreted in
// loc. VEVENTs without UID or DTSTART are skipped and logged.
func Parse(body []byte, loc *time.Location) ([]Entry, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	entries := make([]Entry, 0)
	for _, ve := range cal.Events() {
		e, err := parseEvent(ve, loc)
		if err != nil {
			appLog.Error("ics vevent skipped", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

func param(p *ical.IANAProperty, name string) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if vs := p.ICalParameters[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (Entry, error) {
	e := Entry{
		UID:         propValue(ve, ical.ComponentPropertyUniqueId),
		Summary:     unescape(propValue(ve, ical.ComponentPropertySummary)),
		Description: unescape(propValue(ve, ical.ComponentPropertyDescription)),
		Location:    unescape(propValue(ve, ical.ComponentPropertyLocation)),
		URL:         propValue(ve, ical.ComponentProperty("URL")),
		RRule:       propValue(ve, ical.ComponentPropertyRrule),
	}
	if e.UID == "" {
		return e, errors.New("missing UID")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(propValue(ve, ical.ComponentPropertySequence))); err == nil {
		e.Sequence = n
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return e, fmt.Errorf("event %s: missing DTSTART", e.UID)
	}
	e.AllDay = strings.EqualFold(param(dtStart, "VALUE"), "DATE") || !strings.Contains(dtStart.Value, "T")

	start, err := parseTime(dtStart.Value, param(dtStart, "TZID"), loc)
	if err != nil {
		return e, fmt.Errorf("event %s: DTSTART: %w", e.UID, err)
	}
	e.Start = start

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil && dtEnd.Value != "" {
		end, err := parseTime(dtEnd.Value, param(dtEnd, "TZID"), loc)
		if err != nil {
			return e, fmt.Errorf("event %s: DTEND: %w", e.UID, err)
		}
		e.End = end
	} else if end, err := ve.GetEndAt(); err == nil && !end.IsZero() {
		// DURATION-based end, resolved by the library.
		e.End = end
	} else if e.AllDay {
		e.End = e.Start.AddDate(0, 0, 1)
	} else {
		e.End = e.Start
	}
	if e.End.Before(e.Start) {
		e.End = e.Start
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		tzid := param(p, "TZID")
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseTime(part, tzid, loc); err == nil {
				e.ExDates = append(e.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); rid != nil && rid.Value != "" {
		if t, err := parseTime(rid.Value, param(rid, "TZID"), loc); err == nil {
			e.RecurrenceID = &t
		}
	}

	return e, nil
}

// parseTime handles the three iCalendar forms: UTC date-time, local
// date-time (with optional TZID) and date.
func parseTime(v, tzid string, fallback *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	loc := fallback
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		// Dates are wall-clock days of the viewer, not of the feed.
		return time.ParseInLocation("20060102", v, fallback)
	}
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescape(s string) string {
	return textUnescaper.Replace(s)
}
