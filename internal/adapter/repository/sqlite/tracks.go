package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// TrackRepository implements ports.TrackRepository on the tracks table.
type TrackRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTrackRepository creates a new track repository.
func NewTrackRepository(db *DB, logger *slog.Logger) *TrackRepository {
	return &TrackRepository{db: db.db, logger: logger}
}

// Insert stores new tracks in one transaction.
// The whole batch is rejected when any path is already stored.
func (r *TrackRepository) Insert(ctx context.Context, tracks []domain.TrackRecord) error {
	if len(tracks) == 0 {
		return ctx.Err()
	}

	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if _, dup := seen[t.Path]; dup {
			return &domain.IndexConflict{Path: t.Path}
		}
		seen[t.Path] = struct{}{}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO tracks (id, path, doc) VALUES (?, ?, ?)`)
		if err != nil {
			return domain.NewPersistenceError("insert", "tracks", "failed to prepare insert", err)
		}
		defer stmt.Close()

		for _, t := range tracks {
			if existing, err := pathOwner(ctx, tx, t.Path); err != nil {
				return err
			} else if existing != "" {
				return &domain.IndexConflict{Path: t.Path, ExistingID: existing}
			}

			doc, err := json.Marshal(t)
			if err != nil {
				return domain.NewPersistenceError("marshal", "tracks", fmt.Sprintf("failed to marshal track %s", t.ID), err)
			}
			if _, err := stmt.ExecContext(ctx, t.ID, t.Path, string(doc)); err != nil {
				return domain.NewPersistenceError("insert", "tracks", fmt.Sprintf("failed to insert track %s", t.ID), err)
			}
		}
		return nil
	})
}

// Find returns the tracks matching query in insertion order.
func (r *TrackRepository) Find(ctx context.Context, query ports.TrackQuery) ([]domain.TrackRecord, error) {
	q := `SELECT id, doc FROM tracks`
	var args []any
	switch {
	case query.Path != "" && len(query.IDs) > 0:
		q += ` WHERE path = ? AND id IN (` + placeholders(len(query.IDs)) + `)`
		args = append([]any{query.Path}, stringArgs(query.IDs)...)
	case query.Path != "":
		q += ` WHERE path = ?`
		args = []any{query.Path}
	case len(query.IDs) > 0:
		q += ` WHERE id IN (` + placeholders(len(query.IDs)) + `)`
		args = stringArgs(query.IDs)
	}
	q += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("find", "tracks", "failed to query tracks", err)
	}
	defer rows.Close()

	var tracks []domain.TrackRecord
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, domain.NewPersistenceError("find", "tracks", "failed to scan track", err)
		}
		var track domain.TrackRecord
		if err := json.Unmarshal([]byte(doc), &track); err != nil {
			r.logger.Warn("track corrupted", slog.String("id", id), slog.Any("error", err))
			continue
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("find", "tracks", "failed to read tracks", err)
	}
	return tracks, nil
}

// Update replaces a stored track, moving its path index when the path changed.
func (r *TrackRepository) Update(ctx context.Context, track domain.TrackRecord) error {
	doc, err := json.Marshal(track)
	if err != nil {
		return domain.NewPersistenceError("marshal", "tracks", fmt.Sprintf("failed to marshal track %s", track.ID), err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := pathOwner(ctx, tx, track.Path)
		if err != nil {
			return err
		}
		if existing != "" && existing != track.ID {
			return &domain.IndexConflict{Path: track.Path, ExistingID: existing}
		}

		res, err := tx.ExecContext(ctx, `UPDATE tracks SET path = ?, doc = ? WHERE id = ?`, track.Path, string(doc), track.ID)
		if err != nil {
			return domain.NewPersistenceError("update", "tracks", fmt.Sprintf("failed to update track %s", track.ID), err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrTrackNotFound
		}
		return nil
	})
}

// Remove deletes tracks by ID. Unknown ids are ignored.
func (r *TrackRepository) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ctx.Err()
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM tracks WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return domain.NewPersistenceError("remove", "tracks", "failed to remove tracks", err)
	}
	return nil
}

// Clear removes every track.
func (r *TrackRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return domain.NewPersistenceError("clear", "tracks", "failed to clear tracks", err)
	}
	return nil
}

// pathOwner returns the id stored under path, or "" if the path is free.
func pathOwner(ctx context.Context, tx *sql.Tx, path string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM tracks WHERE path = ?`, path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", domain.NewPersistenceError("find", "tracks", "failed to look up path", err)
	}
	return id, nil
}

// Verify interface implementation
var _ ports.TrackRepository = (*TrackRepository)(nil)
