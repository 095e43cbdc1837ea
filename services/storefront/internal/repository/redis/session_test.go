package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewSessionRepository(client, 24*time.Hour)
	return repo, mr
}

func sampleRecord() *domain.SessionRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.SessionRecord{
		ID:        "3f0c9a52-6f7e-4d3b-a1a4-2e9b8c7d6e5f",
		Token:     "header.payload.signature",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	record := sampleRecord()

	require.NoError(t, repo.Save(ctx, record))

	assert.True(t, mr.Exists("session:"+record.ID))
	assert.Equal(t, 24*time.Hour, mr.TTL("session:"+record.ID))

	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Token, got.Token)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
}

func TestSessionRepository_StoredPayloadHasNoCartOrWishlist(t *testing.T) {
	repo, mr := setupTestRedis(t)
	record := sampleRecord()
	require.NoError(t, repo.Save(context.Background(), record))

	raw, err := mr.Get("session:" + record.ID)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.NotContains(t, fields, "items")
	assert.NotContains(t, fields, "wishlist")
	assert.Contains(t, fields, "token")
}

func TestSessionRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	got, err := repo.Get(context.Background(), "missing")

	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionRepository_Get_CorruptPayload(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := repo.Get(context.Background(), "bad")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal session")
}

func TestSessionRepository_SaveOverwritesAndRefreshesTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	record := sampleRecord()
	require.NoError(t, repo.Save(ctx, record))

	mr.FastForward(12 * time.Hour)
	record.Token = ""
	require.NoError(t, repo.Save(ctx, record))

	assert.Equal(t, 24*time.Hour, mr.TTL("session:"+record.ID))
	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Token)
}

func TestSessionRepository_Expires(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	record := sampleRecord()
	require.NoError(t, repo.Save(ctx, record))

	mr.FastForward(25 * time.Hour)

	_, err := repo.Get(ctx, record.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	record := sampleRecord()
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, repo.Delete(ctx, record.ID))
	assert.False(t, mr.Exists("session:"+record.ID))

	// Deleting a missing key is not an error.
	require.NoError(t, repo.Delete(ctx, record.ID))
}

func TestSessionRepository_RedisDown(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "any")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get session")

	err = repo.Save(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set session")
}
