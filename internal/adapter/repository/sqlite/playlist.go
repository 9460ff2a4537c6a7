package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// PlaylistRepository implements ports.PlaylistRepository on the playlists table.
type PlaylistRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPlaylistRepository creates a new playlist repository.
func NewPlaylistRepository(db *DB, logger *slog.Logger) *PlaylistRepository {
	return &PlaylistRepository{db: db.db, logger: logger}
}

// Insert persists a new playlist.
func (r *PlaylistRepository) Insert(ctx context.Context, playlist domain.Playlist) error {
	doc, err := json.Marshal(playlist)
	if err != nil {
		return domain.NewPersistenceError("marshal", "playlists", "failed to marshal playlist", err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO playlists (id, doc) VALUES (?, ?)`, playlist.ID, string(doc)); err != nil {
		return domain.NewPersistenceError("insert", "playlists", "failed to insert playlist", err)
	}
	return nil
}

// Find returns the given playlists, or all of them, in creation order.
// Corrupted documents are logged and skipped.
func (r *PlaylistRepository) Find(ctx context.Context, ids ...string) ([]domain.Playlist, error) {
	q := `SELECT id, doc FROM playlists`
	if len(ids) > 0 {
		q += ` WHERE id IN (` + placeholders(len(ids)) + `)`
	}
	q += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, q, stringArgs(ids)...)
	if err != nil {
		return nil, domain.NewPersistenceError("find", "playlists", "failed to query playlists", err)
	}
	defer rows.Close()

	var playlists []domain.Playlist
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, domain.NewPersistenceError("find", "playlists", "failed to scan playlist", err)
		}
		var p domain.Playlist
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			r.logger.Warn("playlist corrupted", slog.String("id", id), slog.Any("error", err))
			continue
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("find", "playlists", "failed to read playlists", err)
	}
	return playlists, nil
}

// Update replaces a stored playlist.
func (r *PlaylistRepository) Update(ctx context.Context, playlist domain.Playlist) error {
	doc, err := json.Marshal(playlist)
	if err != nil {
		return domain.NewPersistenceError("marshal", "playlists", "failed to marshal playlist", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE playlists SET doc = ? WHERE id = ?`, string(doc), playlist.ID)
	if err != nil {
		return domain.NewPersistenceError("update", "playlists", "failed to update playlist", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrPlaylistNotFound
	}
	return nil
}

// Remove deletes playlists by ID. Unknown ids are ignored.
func (r *PlaylistRepository) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return ctx.Err()
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return domain.NewPersistenceError("remove", "playlists", "failed to remove playlists", err)
	}
	return nil
}

// Clear removes every playlist.
func (r *PlaylistRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM playlists`); err != nil {
		return domain.NewPersistenceError("clear", "playlists", "failed to clear playlists", err)
	}
	return nil
}

// Verify interface implementation
var _ ports.PlaylistRepository = (*PlaylistRepository)(nil)
