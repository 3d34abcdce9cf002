package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notedesk/internal/model"
)

const calendarColumns = `id, user_id, name, ical_url, color, last_synced`

func scanCalendar(row rowScanner) (model.Calendar, error) {
	var c model.Calendar
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ICalURL, &c.Color, &c.LastSynced)
	return c, err
}

// AddCalendar inserts c with a fresh id. LastSynced starts at zero.
func (s *Store) AddCalendar(ctx context.Context, c model.Calendar) (model.Calendar, error) {
	c.ID = newID()
	c.LastSynced = 0
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendars (`+calendarColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.ICalURL, c.Color, c.LastSynced,
	)
	if err != nil {
		return model.Calendar{}, fmt.Errorf("insert calendar: %w", err)
	}
	return c, nil
}

// GetCalendar returns ErrNotFound for unknown ids.
func (s *Store) GetCalendar(ctx context.Context, id string) (model.Calendar, error) {
	c, err := scanCalendar(s.db.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Calendar{}, ErrNotFound
	}
	if err != nil {
		return model.Calendar{}, fmt.Errorf("get calendar: %w", err)
	}
	return c, nil
}

// ListCalendars returns the user's calendars by name. An empty userID
// lists every calendar.
func (s *Store) ListCalendars(ctx context.Context, userID string) ([]model.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	out := make([]model.Calendar, 0)
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCalendar removes the calendar and its events.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceEvents atomically swaps all events of a calendar and stamps
// last_synced with syncedAt (ms).
func (s *Store) ReplaceEvents(ctx context.Context, calendarID string, events []model.Event, syncedAt int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE calendars SET last_synced = ? WHERE id = ?`, syncedAt, calendarID)
		if err != nil {
			return fmt.Errorf("stamp calendar: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE calendar_id = ?`, calendarID); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events (id, calendar_id, uid, title, description, location, url, start_ms, end_ms, all_day, last_synced)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare event insert: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			if _, err := stmt.ExecContext(ctx,
				newID(), calendarID, ev.UID, ev.Title, ev.Description, ev.Location, ev.URL,
				ev.StartTime, ev.EndTime, boolInt(ev.AllDay), syncedAt,
			); err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
		}
		return nil
	})
}

const eventSelect = `
	SELECT e.id, e.calendar_id, e.uid, e.title, e.description, e.location, e.url,
	       e.start_ms, e.end_ms, e.all_day, e.last_synced, c.color
	FROM events e
	JOIN calendars c ON c.id = e.calendar_id`

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		var allDay int
		if err := rows.Scan(&ev.ID, &ev.CalendarID, &ev.UID, &ev.Title, &ev.Description, &ev.Location, &ev.URL,
			&ev.StartTime, &ev.EndTime, &allDay, &ev.LastSynced, &ev.CalendarColor); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.AllDay = allDay != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventsBetween returns the user's events intersecting [from, to) in ms,
// plus zero-length events starting inside it, ordered by start.
func (s *Store) EventsBetween(ctx context.Context, userID string, from, to int64) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, eventSelect+`
		WHERE c.user_id = ? AND e.start_ms < ? AND (e.end_ms > ? OR e.start_ms >= ?)
		ORDER BY e.start_ms ASC, e.end_ms ASC, e.rowid ASC`, userID, to, from, from)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// UpcomingEvents returns up to limit events starting at or after now (ms).
func (s *Store) UpcomingEvents(ctx context.Context, userID string, now int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, eventSelect+`
		WHERE c.user_id = ? AND e.start_ms >= ?
		ORDER BY e.start_ms ASC, e.rowid ASC
		LIMIT ?`, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	return scanEvents(rows)
}
