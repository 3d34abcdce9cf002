package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"notedesk/internal/model"
)

const pageColumns = `id, user_id, title, description, icon, cover_image, content, is_favorite, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (model.Page, error) {
	var p model.Page
	var fav int
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Icon, &p.CoverImage, &p.Content, &fav, &p.CreatedAt, &p.UpdatedAt)
	p.IsFavorite = fav != 0
	return p, err
}

// CreatePage inserts an empty page titled title.
func (s *Store) CreatePage(ctx context.Context, userID, title string) (model.Page, error) {
	now := s.nowMs()
	p := model.Page{
		ID:        newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, '', '', '', '', 0, ?, ?)`,
		p.ID, p.UserID, p.Title, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.Page{}, fmt.Errorf("insert page: %w", err)
	}
	return p, nil
}

// ListPages returns the user's pages, newest first.
func (s *Store) ListPages(ctx context.Context, userID string) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM pages
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPage returns ErrNotFound for unknown ids.
func (s *Store) GetPage(ctx context.Context, id string) (model.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, ErrNotFound
	}
	if err != nil {
		return model.Page{}, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// UpdatePage applies the non-nil fields of patch and bumps updated_at.
func (s *Store) UpdatePage(ctx context.Context, id string, patch model.PagePatch) (model.Page, error) {
	var out model.Page
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPage(tx.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get page: %w", err)
		}

		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Icon != nil {
			p.Icon = *patch.Icon
		}
		if patch.CoverImage != nil {
			p.CoverImage = *patch.CoverImage
		}
		if patch.Content != nil {
			p.Content = *patch.Content
		}
		if patch.IsFavorite != nil {
			p.IsFavorite = *patch.IsFavorite
		}
		p.UpdatedAt = s.nowMs()

		_, err = tx.ExecContext(ctx, `
			UPDATE pages SET title = ?, description = ?, icon = ?, cover_image = ?, content = ?, is_favorite = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.Description, p.Icon, p.CoverImage, p.Content, boolInt(p.IsFavorite), p.UpdatedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update page: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

// DeletePage removes the page with its blocks and visits.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordVisit notes that userID opened pageID now.
func (s *Store) RecordVisit(ctx context.Context, userID, pageID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_visits (page_id, user_id, visited_at) VALUES (?, ?, ?)`,
		pageID, userID, s.nowMs(),
	)
	if err != nil {
		return fmt.Errorf("insert page visit: %w", err)
	}
	return nil
}

// RecentlyVisited returns distinct pages ordered by their latest visit.
func (s *Store) RecentlyVisited(ctx context.Context, userID string, limit int) ([]model.Page, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.title, p.description, p.icon, p.cover_image, p.content, p.is_favorite, p.created_at, p.updated_at
		FROM pages p
		JOIN (
			SELECT page_id, MAX(visited_at) AS last_visit, MAX(id) AS last_id
			FROM page_visits WHERE user_id = ?
			GROUP BY page_id
		) v ON v.page_id = p.id
		ORDER BY v.last_visit DESC, v.last_id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ListBlocks returns a page's blocks in display order.
func (s *Store) ListBlocks(ctx context.Context, pageID string) ([]model.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, type, content, ord, metadata FROM blocks
		WHERE page_id = ?
		ORDER BY ord ASC, rowid ASC`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	blocks := make([]model.Block, 0)
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func scanBlock(row rowScanner) (model.Block, error) {
	var b model.Block
	var meta sql.NullString
	if err := row.Scan(&b.ID, &b.PageID, &b.Type, &b.Content, &b.Order, &meta); err != nil {
		return model.Block{}, err
	}
	if meta.Valid && meta.String != "" {
		var m model.BlockMetadata
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			return model.Block{}, fmt.Errorf("decode block metadata: %w", err)
		}
		b.Metadata = &m
	}
	return b, nil
}

func encodeMetadata(m *model.BlockMetadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode block metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// GetBlock returns ErrNotFound for unknown ids.
func (s *Store) GetBlock(ctx context.Context, id string) (model.Block, error) {
	b, err := scanBlock(s.db.QueryRowContext(ctx, `SELECT id, page_id, type, content, ord, metadata FROM blocks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Block{}, ErrNotFound
	}
	if err != nil {
		return model.Block{}, fmt.Errorf("get block: %w", err)
	}
	return b, nil
}

// CreateBlock inserts b under its page. b.ID is assigned.
func (s *Store) CreateBlock(ctx context.Context, b model.Block) (model.Block, error) {
	if _, err := s.GetPage(ctx, b.PageID); err != nil {
		return model.Block{}, err
	}
	meta, err := encodeMetadata(b.Metadata)
	if err != nil {
		return model.Block{}, err
	}
	b.ID = newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blocks (id, page_id, type, content, ord, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.PageID, b.Type, b.Content, b.Order, meta,
	)
	if err != nil {
		return model.Block{}, fmt.Errorf("insert block: %w", err)
	}
	return b, nil
}

// UpdateBlock applies the non-nil fields of patch. Metadata is replaced
// as a whole.
func (s *Store) UpdateBlock(ctx context.Context, id string, patch model.BlockPatch) (model.Block, error) {
	var out model.Block
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := scanBlock(tx.QueryRowContext(ctx, `SELECT id, page_id, type, content, ord, metadata FROM blocks WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get block: %w", err)
		}
		if patch.Type != nil {
			b.Type = *patch.Type
		}
		if patch.Content != nil {
			b.Content = *patch.Content
		}
		if patch.Metadata != nil {
			b.Metadata = patch.Metadata
		}
		meta, err := encodeMetadata(b.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE blocks SET type = ?, content = ?, metadata = ? WHERE id = ?`,
			b.Type, b.Content, meta, b.ID); err != nil {
			return fmt.Errorf("update block: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}

// DeleteBlock removes one block.
func (s *Store) DeleteBlock(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
