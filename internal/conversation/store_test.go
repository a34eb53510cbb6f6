package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/testutil"
)

func TestStore_SaveRoundTrip(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	store := NewStore(tdb.Conn, testutil.NopLogger())
	ctx := context.Background()

	idx := 1
	selected := media.Result{Title: "Severance", Year: 2022, TvdbID: 371980, Kind: media.KindSeries, SeasonCount: 2}
	session := &Session{
		Requester: "alice",
		State:     StateAwaitingSeasonSelection,
		Kind:      media.KindSeries,
		Query:     "severance",
		Results: []media.Result{
			{Title: "Other", Year: 2019, TvdbID: 1, Kind: media.KindSeries},
			selected,
		},
		SelectedIndex:    &idx,
		Selected:         &selected,
		SeasonsAvailable: []int{1, 2},
	}
	require.NoError(t, store.Save(ctx, session))
	require.NotEmpty(t, session.ID)

	got, err := store.GetByRequester(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSeasonSelection, got.State)
	assert.Equal(t, "severance", got.Query)
	require.Len(t, got.Results, 2)
	require.NotNil(t, got.SelectedIndex)
	assert.Equal(t, 1, *got.SelectedIndex)
	require.NotNil(t, got.Selected)
	assert.Equal(t, "Severance", got.Selected.Title)
	assert.Equal(t, []int{1, 2}, got.SeasonsAvailable)
	assert.Nil(t, got.SeasonsChosen)
	assert.False(t, got.Expired())
}

func TestStore_SaveUpsertsPerRequester(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	store := NewStore(tdb.Conn, testutil.NopLogger())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{Requester: "alice", State: StateAwaitingSelection, Query: "dune"}))
	require.NoError(t, store.Save(ctx, &Session{Requester: "alice", State: StateAwaitingConfirmation, Query: "fargo"}))

	got, err := store.GetByRequester(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, got.State)
	assert.Equal(t, "fargo", got.Query)
}

func TestStore_Delete(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	store := NewStore(tdb.Conn, testutil.NopLogger())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{Requester: "alice", State: StateAwaitingSelection}))
	require.NoError(t, store.Delete(ctx, "alice"))

	_, err := store.GetByRequester(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "alice"), "deleting an absent session is not an error")
}

func TestStore_PurgeExpired(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	store := NewStore(tdb.Conn, testutil.NopLogger())
	ctx := context.Background()

	session := &Session{Requester: "alice", State: StateAwaitingSelection}
	require.NoError(t, store.Save(ctx, session))

	// Force the row into the past.
	_, err := tdb.Conn.ExecContext(ctx,
		`UPDATE sessions SET expires_at = datetime('now', '-1 minute') WHERE requester = 'alice'`)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &Session{Requester: "bob", State: StateAwaitingSelection}))

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.GetByRequester(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByRequester(ctx, "bob")
	assert.NoError(t, err)
}

func TestContactStore_Touch(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	store := NewContactStore(tdb.Conn, testutil.NopLogger())
	ctx := context.Background()

	require.NoError(t, store.Touch(ctx, "alice", "Alice"))
	require.NoError(t, store.Touch(ctx, "alice", ""))
	require.NoError(t, store.Touch(ctx, "bob", ""))

	contacts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	var alice *Contact
	for _, c := range contacts {
		if c.Requester == "alice" {
			alice = c
		}
	}
	require.NotNil(t, alice)
	assert.Equal(t, "Alice", alice.DisplayName, "empty display name does not clobber the stored one")
}
