// Package calsync keeps stored calendar events in step with their ICS
// feeds, on demand and on a cron schedule.
package calsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"notedesk/internal/ics"
	appLog "notedesk/internal/log"
	"notedesk/internal/model"
)

// Sync window relative to now.
const (
	DefaultLookBack  = 30 * 24 * time.Hour
	DefaultLookAhead = 90 * 24 * time.Hour
)

// Store is the persistence the syncer needs.
type Store interface {
	AddCalendar(ctx context.Context, c model.Calendar) (model.Calendar, error)
	GetCalendar(ctx context.Context, id string) (model.Calendar, error)
	ListCalendars(ctx context.Context, userID string) ([]model.Calendar, error)
	ReplaceEvents(ctx context.Context, calendarID string, events []model.Event, syncedAt int64) error
	DeleteCalendar(ctx context.Context, id string) error
}

// Fetcher downloads a feed body.
type Fetcher interface {
	Fetch(ctx context.Context, feed ics.Feed) (ics.Payload, error)
}

// Syncer fetches, parses and expands feeds and replaces the stored events
// of each calendar. Syncs of the same calendar never run concurrently.
type Syncer struct {
	store   Store
	fetcher Fetcher
	loc     *time.Location
	now     func() time.Time
	back    time.Duration
	ahead   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer returns a Syncer expanding events in loc.
func NewSyncer(store Store, fetcher Fetcher, loc *time.Location) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	return &Syncer{
		store:   store,
		fetcher: fetcher,
		loc:     loc,
		now:     time.Now,
		back:    DefaultLookBack,
		ahead:   DefaultLookAhead,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Syncer) calendarLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// AddCalendar stores c and syncs it right away. A failed first sync is
// logged; the calendar is kept and picked up by the next scheduled run.
func (s *Syncer) AddCalendar(ctx context.Context, c model.Calendar) (model.Calendar, error) {
	if c.ICalURL == "" {
		return model.Calendar{}, ics.ErrEmptyURL
	}
	if c.Name == "" {
		c.Name = ics.RedactURL(c.ICalURL)
	}
	created, err := s.store.AddCalendar(ctx, c)
	if err != nil {
		return model.Calendar{}, err
	}
	if _, err := s.SyncCalendar(ctx, created.ID); err != nil {
		appLog.Error("initial calendar sync failed", err, "calendar", created.ID)
		return created, nil
	}
	if fresh, err := s.store.GetCalendar(ctx, created.ID); err == nil {
		created = fresh
	}
	return created, nil
}

// SyncCalendar refreshes one calendar from its feed and returns the number
// of stored events.
func (s *Syncer) SyncCalendar(ctx context.Context, calendarID string) (int, error) {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return 0, err
	}

	lock := s.calendarLock(cal.ID)
	lock.Lock()
	defer lock.Unlock()

	payload, err := s.fetcher.Fetch(ctx, ics.Feed{CalendarID: cal.ID, URL: cal.ICalURL})
	if err != nil {
		return 0, err
	}
	n, err := s.replaceFromBody(ctx, cal.ID, payload.Body)
	if err != nil {
		return 0, err
	}
	appLog.Info("calendar synced", "calendar", cal.ID, "events", n, "cached", payload.Cached)
	return n, nil
}

// ImportICS replaces the events of a calendar with the contents of body,
// without touching the network.
func (s *Syncer) ImportICS(ctx context.Context, calendarID string, body []byte) (int, error) {
	if _, err := s.store.GetCalendar(ctx, calendarID); err != nil {
		return 0, err
	}
	lock := s.calendarLock(calendarID)
	lock.Lock()
	defer lock.Unlock()
	return s.replaceFromBody(ctx, calendarID, body)
}

// RemoveCalendar deletes the calendar with its events and drops the cached
// feed when the fetcher keeps one.
func (s *Syncer) RemoveCalendar(ctx context.Context, calendarID string) error {
	if err := s.store.DeleteCalendar(ctx, calendarID); err != nil {
		return err
	}
	if f, ok := s.fetcher.(interface{ Forget(string) error }); ok {
		if err := f.Forget(calendarID); err != nil {
			appLog.Error("ics cache cleanup failed", err, "calendar", calendarID)
		}
	}
	s.mu.Lock()
	delete(s.locks, calendarID)
	s.mu.Unlock()
	return nil
}

// SyncAll syncs every stored calendar. Individual failures are logged and
// returned joined; the remaining calendars are still synced.
func (s *Syncer) SyncAll(ctx context.Context) error {
	cals, err := s.store.ListCalendars(ctx, "")
	if err != nil {
		return err
	}
	var errs []error
	for _, cal := range cals {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.SyncCalendar(ctx, cal.ID); err != nil {
			appLog.Error("calendar sync failed", err, "calendar", cal.ID, "url", ics.RedactURL(cal.ICalURL))
			errs = append(errs, fmt.Errorf("calendar %s: %w", cal.ID, err))
		}
	}
	return errors.Join(errs...)
}

// replaceFromBody parses and expands body and swaps it into the store.
func (s *Syncer) replaceFromBody(ctx context.Context, calendarID string, body []byte) (int, error) {
	entries, err := ics.Parse(body, s.loc)
	if err != nil {
		return 0, err
	}
	now := s.now()
	events, err := ics.Expand(entries, ics.Window{
		From: now.Add(-s.back),
		To:   now.Add(s.ahead),
	})
	if err != nil {
		return 0, err
	}
	for i := range events {
		events[i].CalendarID = calendarID
	}
	if err := s.store.ReplaceEvents(ctx, calendarID, events, now.UnixMilli()); err != nil {
		return 0, err
	}
	return len(events), nil
}
