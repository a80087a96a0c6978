package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
)

type fakeHashClient struct {
	hashes map[string]map[string]string
	err    error
}

func newFakeHashClient() *fakeHashClient {
	return &fakeHashClient{hashes: map[string]map[string]string{}}
}

func (f *fakeHashClient) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	h := f.hashes[key]
	if h == nil {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeHashClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	if f.err != nil {
		return redis.NewMapStringStringResult(nil, f.err)
	}
	out := map[string]string{}
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeHashClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestSessionRedisRepositoryRoundTrip(t *testing.T) {
	client := newFakeHashClient()
	repo := NewSessionRedisRepository(client, "test:session", nil)
	ctx := context.Background()

	session := models.Session{Token: "a", RefreshToken: "r", UserID: "9", Username: "carol", Role: models.RoleInstructor}
	require.NoError(t, repo.Save(ctx, session))
	assert.Equal(t, "instructor", client.hashes["test:session"]["role"])

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, session.Equal(loaded))

	require.NoError(t, repo.Clear(ctx))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated())
}

func TestSessionRedisRepositoryPropagatesErrors(t *testing.T) {
	client := newFakeHashClient()
	client.err = errors.New("connection refused")
	repo := NewSessionRedisRepository(client, "", nil)

	_, err := repo.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, repo.Save(context.Background(), models.Session{Token: "x"}))
}
