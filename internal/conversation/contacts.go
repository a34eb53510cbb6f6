package conversation

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

// Contact is a chat identity the service has heard from.
type Contact struct {
	Requester   string    `json:"requester"`
	DisplayName string    `json:"displayName,omitempty"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ContactStore tracks requester identities and when they were last seen.
type ContactStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewContactStore creates a new contact store.
func NewContactStore(db *sql.DB, logger zerolog.Logger) *ContactStore {
	return &ContactStore{
		db:     db,
		logger: logger.With().Str("component", "contacts").Logger(),
	}
}

// Touch upserts a contact, refreshing its last-seen time. A non-empty
// display name replaces the stored one.
func (st *ContactStore) Touch(ctx context.Context, requester, displayName string) error {
	now := time.Now().UTC()
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO contacts (requester, display_name, last_seen_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(requester) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE contacts.display_name END,
			last_seen_at = excluded.last_seen_at`,
		requester, displayName, now, now)
	return err
}

// List returns all known contacts, most recently seen first.
func (st *ContactStore) List(ctx context.Context) ([]*Contact, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT requester, display_name, last_seen_at, created_at
		FROM contacts ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Requester, &c.DisplayName, &c.LastSeenAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
