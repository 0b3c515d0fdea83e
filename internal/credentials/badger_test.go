package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	id := "dev@example.com_acme_staging@https://api.cloud.example.com"

	_, err := store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	want := Credentials{Username: "dev@example.com", Password: "s3cret"}
	require.NoError(t, store.Set(id, want))

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	id := "dev@https://api.example.com"

	require.NoError(t, store.Set(id, Credentials{Username: "dev", Password: "old"}))
	require.NoError(t, store.Set(id, Credentials{Username: "dev", Password: "new"}))

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)
}

func TestDeleteMissingIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete("never-stored"))
}

func TestOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	id := "dev@https://api.example.com"
	require.NoError(t, store.Set(id, Credentials{Username: "dev", Password: "pw"}))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "pw", got.Password)
}
