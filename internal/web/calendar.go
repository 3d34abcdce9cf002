package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"notedesk/internal/ics"
	"notedesk/internal/layout"
	appLog "notedesk/internal/log"
	"notedesk/internal/model"
	"notedesk/internal/store"
)

const (
	dateLayout           = "2006-01-02"
	maxICSUpload         = 5 << 20
	defaultColor         = "#4a7dff"
	defaultUpcomingLimit = 10
)

//go:embed templates/week.html
var templateFS embed.FS

var weekTemplate = template.Must(template.New("week.html").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).ParseFS(templateFS, "templates/week.html"))

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

func safeColor(c string) string {
	if hexColor.MatchString(c) {
		return c
	}
	return defaultColor
}

// positionedView is a laid-out event with its rendering geometry.
type positionedView struct {
	model.PositionedEvent
	Geometry  layout.Geometry `json:"geometry"`
	TimeLabel string          `json:"timeLabel"`
}

type dayView struct {
	Date    string           `json:"date"`
	Weekday string           `json:"weekday"`
	AllDay  []model.Event    `json:"allDay"`
	Events  []positionedView `json:"events"`
}

type weekView struct {
	Start    string    `json:"start"`
	Timezone string    `json:"timezone"`
	Days     []dayView `json:"days"`
}

// parseDay returns local midnight of the "date" query value, or of today.
func (s *Server) parseDay(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		now := s.now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return d, nil
}

// buildDays lays out n consecutive days from start. Events belong to the
// day they start on; all-day events are listed apart from the grid.
func (s *Server) buildDays(ctx context.Context, user string, start time.Time, n int) ([]dayView, error) {
	end := start.AddDate(0, 0, n)
	events, err := s.store.EventsBetween(ctx, user, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}

	days := make([]dayView, 0, n)
	for i := 0; i < n; i++ {
		dayStart := start.AddDate(0, 0, i)
		dv := dayView{
			Date:    dayStart.Format(dateLayout),
			Weekday: dayStart.Weekday().String()[:3],
			AllDay:  make([]model.Event, 0),
			Events:  make([]positionedView, 0),
		}

		timed := make([]model.Event, 0)
		for _, ev := range layout.EventsOnDay(events, dayStart) {
			ev.CalendarColor = safeColor(ev.CalendarColor)
			if ev.AllDay {
				dv.AllDay = append(dv.AllDay, ev)
				continue
			}
			timed = append(timed, ev)
		}
		for _, p := range layout.Day(timed) {
			dv.Events = append(dv.Events, positionedView{
				PositionedEvent: p,
				Geometry:        layout.Place(p, dayStart),
				TimeLabel:       p.Start(s.loc).Format("15:04") + " - " + p.End(s.loc).Format("15:04"),
			})
		}
		days = append(days, dv)
	}
	return days, nil
}

func (s *Server) buildWeek(ctx context.Context, user string, day time.Time) (weekView, error) {
	start := layout.WeekStart(day, s.cfg.FirstWeekday())
	days, err := s.buildDays(ctx, user, start, 7)
	if err != nil {
		return weekView{}, err
	}
	return weekView{Start: start.Format(dateLayout), Timezone: s.loc.String(), Days: days}, nil
}

func (s *Server) handleDayEvents(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := s.buildDays(r.Context(), s.userID(r), day, 1)
	if err != nil {
		writeStoreError(w, err, "events")
		return
	}
	writeJSON(w, http.StatusOK, days[0])
}

func (s *Server) handleWeekEvents(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	week, err := s.buildWeek(r.Context(), s.userID(r), day)
	if err != nil {
		writeStoreError(w, err, "events")
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), defaultUpcomingLimit)
	events, err := s.store.UpcomingEvents(r.Context(), s.userID(r), s.now().UnixMilli(), limit)
	if err != nil {
		writeStoreError(w, err, "events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleCalendarPage renders the week grid. The snapshot command waits for
// data-ready on #week before capturing.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDay(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	week, err := s.buildWeek(r.Context(), s.userID(r), day)
	if err != nil {
		appLog.Error("week view failed", err)
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := weekTemplate.Execute(w, week); err != nil {
		appLog.Error("week template failed", err)
	}
}

func (s *Server) ownedCalendar(w http.ResponseWriter, r *http.Request) (model.Calendar, bool) {
	c, err := s.store.GetCalendar(r.Context(), mux.Vars(r)["id"])
	if err == nil && c.UserID != s.userID(r) {
		err = store.ErrNotFound
	}
	if err != nil {
		writeStoreError(w, err, "calendar")
		return model.Calendar{}, false
	}
	return c, true
}

func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := s.store.ListCalendars(r.Context(), s.userID(r))
	if err != nil {
		writeStoreError(w, err, "calendars")
		return
	}
	writeJSON(w, http.StatusOK, cals)
}

type addCalendarRequest struct {
	Name    string `json:"name"`
	ICalURL string `json:"icalUrl"`
	Color   string `json:"color"`
}

func (s *Server) handleAddCalendar(w http.ResponseWriter, r *http.Request) {
	var req addCalendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ICalURL = strings.TrimSpace(req.ICalURL)
	if !strings.HasPrefix(req.ICalURL, "http://") && !strings.HasPrefix(req.ICalURL, "https://") {
		writeError(w, http.StatusBadRequest, "icalUrl must be an http(s) URL")
		return
	}
	cal, err := s.syncer.AddCalendar(r.Context(), model.Calendar{
		UserID:  s.userID(r),
		Name:    strings.TrimSpace(req.Name),
		ICalURL: req.ICalURL,
		Color:   safeColor(req.Color),
	})
	if err != nil {
		writeStoreError(w, err, "calendar")
		return
	}
	writeJSON(w, http.StatusCreated, cal)
}

type syncResult struct {
	Events int `json:"events"`
}

func (s *Server) handleSyncCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}
	n, err := s.syncer.SyncCalendar(r.Context(), cal.ID)
	if err != nil {
		appLog.Error("manual calendar sync failed", err, "calendar", cal.ID)
		writeError(w, http.StatusBadGateway, "failed to sync calendar")
		return
	}
	writeJSON(w, http.StatusOK, syncResult{Events: n})
}

// handleImportCalendar takes a raw ICS body.
func (s *Server) handleImportCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxICSUpload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "ICS body too large")
		return
	}
	n, err := s.syncer.ImportICS(r.Context(), cal.ID, body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, err, "calendar")
			return
		}
		if errors.Is(err, ics.ErrEmptyBody) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid ICS data")
		return
	}
	writeJSON(w, http.StatusOK, syncResult{Events: n})
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.ownedCalendar(w, r)
	if !ok {
		return
	}
	if err := s.syncer.RemoveCalendar(r.Context(), cal.ID); err != nil {
		writeStoreError(w, err, "calendar")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
