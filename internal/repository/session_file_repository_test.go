package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/pkg/storage"
)

func newFileRepo(t *testing.T) (*SessionFileRepository, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewSessionFileRepository(store, nil), store
}

func TestSessionFileRepositoryRoundTrip(t *testing.T) {
	repo, _ := newFileRepo(t)
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, empty.Authenticated())

	session := models.Session{Token: "a", RefreshToken: "r", UserID: "7", Username: "alice", Role: models.RoleStudent}
	require.NoError(t, repo.Save(ctx, session))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, session.Equal(loaded))

	require.NoError(t, repo.Clear(ctx))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Session{}, loaded)
}

func TestSessionFileRepositoryCorruptDocumentIsAnonymous(t *testing.T) {
	repo, store := newFileRepo(t)
	require.NoError(t, store.SavePrivate(SessionFileName, []byte("{not json")))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated())
}

func TestSessionFileRepositoryUsesStorageKeys(t *testing.T) {
	repo, store := newFileRepo(t)
	require.NoError(t, repo.Save(context.Background(), models.Session{Token: "t", UserID: "1", Username: "bob", Role: models.RoleInstructor}))

	raw, err := store.Read(SessionFileName)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access":"t","user_id":"1","username":"bob","role":"instructor"}`, string(raw))
}
