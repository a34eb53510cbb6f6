package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Store provides CRUD access to service configurations.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new service configuration store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "services").Logger(),
	}
}

const serviceColumns = `id, kind, name, base_url, api_key, enabled, priority, max_results, quality_profile_id, root_folder, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (*Service, error) {
	var s Service
	var enabled int
	err := row.Scan(&s.ID, &s.Kind, &s.Name, &s.BaseURL, &s.APIKey, &enabled,
		&s.Priority, &s.MaxResults, &s.QualityProfileID, &s.RootFolder,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Enabled = enabled != 0
	return &s, nil
}

// Create inserts a new service configuration.
func (st *Store) Create(ctx context.Context, s *Service) (*Service, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := st.db.ExecContext(ctx, `
		INSERT INTO services (kind, name, base_url, api_key, enabled, priority, max_results, quality_profile_id, root_folder, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Kind, s.Name, s.BaseURL, s.APIKey, boolToInt(s.Enabled), s.Priority,
		s.MaxResults, s.QualityProfileID, s.RootFolder, now, now)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now

	st.logger.Info().
		Int64("id", s.ID).
		Str("kind", string(s.Kind)).
		Str("name", s.Name).
		Bool("enabled", s.Enabled).
		Msg("Service configuration created")

	return s, nil
}

// Update replaces an existing service configuration.
func (st *Store) Update(ctx context.Context, s *Service) error {
	if err := s.Validate(); err != nil {
		return err
	}

	res, err := st.db.ExecContext(ctx, `
		UPDATE services
		SET kind = ?, name = ?, base_url = ?, api_key = ?, enabled = ?, priority = ?,
		    max_results = ?, quality_profile_id = ?, root_folder = ?, updated_at = ?
		WHERE id = ?`,
		s.Kind, s.Name, s.BaseURL, s.APIKey, boolToInt(s.Enabled), s.Priority,
		s.MaxResults, s.QualityProfileID, s.RootFolder, time.Now().UTC(), s.ID)
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

// Delete removes a service configuration.
func (st *Store) Delete(ctx context.Context, id int64) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
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

// GetByID fetches a single service configuration.
func (st *Store) GetByID(ctx context.Context, id int64) (*Service, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	s, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns all service configurations ordered by kind then priority.
func (st *Store) List(ctx context.Context) ([]*Service, error) {
	return st.query(ctx,
		`SELECT `+serviceColumns+` FROM services ORDER BY kind, priority, id`)
}

// ListEnabled returns all enabled service configurations ordered by priority.
func (st *Store) ListEnabled(ctx context.Context) ([]*Service, error) {
	return st.query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE enabled = 1 ORDER BY priority, id`)
}

// ListEnabledByKind returns enabled configurations of one kind, highest
// priority (lowest number) first.
func (st *Store) ListEnabledByKind(ctx context.Context, kind Kind) ([]*Service, error) {
	return st.query(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE enabled = 1 AND kind = ? ORDER BY priority, id`,
		kind)
}

// Count returns the total number of configured services.
func (st *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := st.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&n)
	return n, err
}

func (st *Store) query(ctx context.Context, q string, args ...any) ([]*Service, error) {
	rows, err := st.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
