package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/media"
)

// Store persists conversation sessions, one row per requester.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new session store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "sessions").Logger(),
	}
}

// GetByRequester loads a requester's session. Expiry is the caller's
// concern; this returns whatever is stored.
func (st *Store) GetByRequester(ctx context.Context, requester string) (*Session, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT id, requester, state, media_kind, query, results, selected_index, selected, seasons_available, seasons_chosen, created_at, updated_at, expires_at
		FROM sessions WHERE requester = ?`, requester)

	var s Session
	var kind, query, results, selected, seasonsAvail, seasonsChosen sql.NullString
	var selectedIndex sql.NullInt64
	err := row.Scan(&s.ID, &s.Requester, &s.State, &kind, &query, &results,
		&selectedIndex, &selected, &seasonsAvail, &seasonsChosen,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Kind = media.Kind(kind.String)
	s.Query = query.String
	if err := unmarshalInto(results, &s.Results); err != nil {
		return nil, err
	}
	if selectedIndex.Valid {
		idx := int(selectedIndex.Int64)
		s.SelectedIndex = &idx
	}
	if err := unmarshalInto(selected, &s.Selected); err != nil {
		return nil, err
	}
	if err := unmarshalInto(seasonsAvail, &s.SeasonsAvailable); err != nil {
		return nil, err
	}
	if err := unmarshalInto(seasonsChosen, &s.SeasonsChosen); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts a session keyed by requester, refreshing its expiry.
func (st *Store) Save(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(SessionTTL)

	results, err := marshalNullable(s.Results)
	if err != nil {
		return err
	}
	selected, err := marshalNullable(s.Selected)
	if err != nil {
		return err
	}
	seasonsAvail, err := marshalNullable(s.SeasonsAvailable)
	if err != nil {
		return err
	}
	seasonsChosen, err := marshalNullable(s.SeasonsChosen)
	if err != nil {
		return err
	}

	var selectedIndex any
	if s.SelectedIndex != nil {
		selectedIndex = *s.SelectedIndex
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sessions (id, requester, state, media_kind, query, results, selected_index, selected, seasons_available, seasons_chosen, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(requester) DO UPDATE SET
			id = excluded.id,
			state = excluded.state,
			media_kind = excluded.media_kind,
			query = excluded.query,
			results = excluded.results,
			selected_index = excluded.selected_index,
			selected = excluded.selected,
			seasons_available = excluded.seasons_available,
			seasons_chosen = excluded.seasons_chosen,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		s.ID, s.Requester, s.State, nullableString(string(s.Kind)), nullableString(s.Query),
		results, selectedIndex, selected, seasonsAvail, seasonsChosen,
		s.CreatedAt, s.UpdatedAt, s.ExpiresAt)
	return err
}

// Delete retires a requester's session. Deleting an absent session is not
// an error.
func (st *Store) Delete(ctx context.Context, requester string) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE requester = ?`, requester)
	return err
}

// PurgeExpired removes all sessions past their expiry and returns the count.
func (st *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		st.logger.Debug().Int64("removed", removed).Msg("Purged expired sessions")
	}
	return removed, nil
}

func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case []media.Result:
		if val == nil {
			return nil, nil
		}
	case *media.Result:
		if val == nil {
			return nil, nil
		}
	case []int:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalInto(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
