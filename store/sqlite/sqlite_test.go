package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	// GIVEN: A weights table with values that must not be reformatted
	store := newTestStore(t)
	ctx := context.Background()

	in := generic.NewTable("standard_weights",
		[]string{"Age group", "WHO World Standard"},
		[][]string{{"0-4", "8.86"}, {"80-84", "0.910"}, {"85+", "0.63"}})

	// WHEN: Saved and loaded back
	require.NoError(t, store.SaveTableFrom(ctx, in, "WHO_age_standardisation.csv"))
	out, err := store.Table(ctx, "standard_weights")
	require.NoError(t, err)

	// THEN: Identical columns, rows and row order
	assert.Equal(t, in.Columns, out.Columns)
	assert.Equal(t, in.Rows, out.Rows)

	infos, err := store.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 3, infos[0].Rows)
	assert.Equal(t, "WHO_age_standardisation.csv", infos[0].Source)
	assert.False(t, infos[0].ImportedAt.IsZero())
}

func TestStore_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTable(ctx, generic.NewTable("population", []string{"a"}, [][]string{{"1"}, {"2"}, {"3"}})))
	require.NoError(t, store.SaveTable(ctx, generic.NewTable("population", []string{"b"}, [][]string{{"9"}})))

	out, err := store.Table(ctx, "population")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, out.Columns)
	assert.Equal(t, [][]string{{"9"}}, out.Rows)
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Table(context.Background(), "mortality")
	assert.True(t, errors.Is(err, generic.ErrTableNotFound))

	err = store.DeleteTable(context.Background(), "mortality")
	assert.True(t, errors.Is(err, generic.ErrTableNotFound))
}

func TestStore_NamesDeleteReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"population", "mortality", "standard_weights"} {
		require.NoError(t, store.SaveTable(ctx, generic.NewTable(name, []string{"x"}, [][]string{{"1"}})))
	}

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mortality", "population", "standard_weights"}, names)

	require.NoError(t, store.DeleteTable(ctx, "mortality"))
	names, err = store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"population", "standard_weights"}, names)

	require.NoError(t, store.Reset(ctx))
	names, err = store.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_RejectsUnnamedTable(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveTable(context.Background(), generic.NewTable("", []string{"x"}, nil)))
}
