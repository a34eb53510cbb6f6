package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store provides CRUD access to media requests.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new request store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "requests").Logger(),
	}
}

const requestColumns = `id, requester, title, year, tmdb_id, tvdb_id, media_kind, seasons, status, service_kind, error, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (*MediaRequest, error) {
	var r MediaRequest
	var seasons sql.NullString
	err := row.Scan(&r.ID, &r.Requester, &r.Title, &r.Year, &r.TmdbID, &r.TvdbID,
		&r.Kind, &seasons, &r.Status, &r.ServiceKind, &r.Error,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if seasons.Valid && seasons.String != "" {
		if err := json.Unmarshal([]byte(seasons.String), &r.Seasons); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// Create inserts a new request in PENDING state and assigns it an id.
func (st *Store) Create(ctx context.Context, r *MediaRequest) (*MediaRequest, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}

	var seasons any
	if len(r.Seasons) > 0 {
		data, err := json.Marshal(r.Seasons)
		if err != nil {
			return nil, err
		}
		seasons = string(data)
	}

	now := time.Now().UTC()
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO requests (id, requester, title, year, tmdb_id, tvdb_id, media_kind, seasons, status, service_kind, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Requester, r.Title, r.Year, r.TmdbID, r.TvdbID, r.Kind, seasons,
		r.Status, r.ServiceKind, r.Error, now, now)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	st.logger.Info().
		Str("id", r.ID).
		Str("requester", r.Requester).
		Str("title", r.Title).
		Str("kind", string(r.Kind)).
		Msg("Media request created")

	return r, nil
}

// GetByID fetches a single request.
func (st *Store) GetByID(ctx context.Context, id string) (*MediaRequest, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// MostRecentPending returns the newest request still awaiting a decision.
func (st *Store) MostRecentPending(ctx context.Context) (*MediaRequest, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		StatusPending)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListByStatus returns all requests in one status, newest first.
func (st *Store) ListByStatus(ctx context.Context, status Status) ([]*MediaRequest, error) {
	return st.query(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY created_at DESC, rowid DESC`,
		status)
}

// List returns a page of requests, newest first.
func (st *Store) List(ctx context.Context, limit, offset int) ([]*MediaRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	return st.query(ctx,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset)
}

// UpdateStatus transitions a request, recording the service used and any
// submission error text.
func (st *Store) UpdateStatus(ctx context.Context, id string, status Status, serviceKind, errText string) error {
	res, err := st.db.ExecContext(ctx, `
		UPDATE requests SET status = ?, service_kind = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		status, serviceKind, errText, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	st.logger.Info().
		Str("id", id).
		Str("status", string(status)).
		Msg("Request status updated")
	return nil
}

// Delete removes a request.
func (st *Store) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (st *Store) query(ctx context.Context, q string, args ...any) ([]*MediaRequest, error) {
	rows, err := st.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*MediaRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
