package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
)

const keyPrefix = "session:"

// SessionRepository implements repository.SessionRepository using Redis.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new Redis-backed session repository.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a session record by ID from Redis.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (_ *domain.SessionRecord, err error) {
	ctx, end := database.TraceCommand(ctx, "GetSession", "GET")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session", sessionID)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &record, nil
}

// Save persists a session record to Redis with the configured TTL.
func (r *SessionRepository) Save(ctx context.Context, record *domain.SessionRecord) (err error) {
	ctx, end := database.TraceCommand(ctx, "SaveSession", "SET")
	defer func() { end(err) }()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+record.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Delete removes a session record from Redis by ID.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) (err error) {
	ctx, end := database.TraceCommand(ctx, "DeleteSession", "DEL")
	defer func() { end(err) }()

	if err = r.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}

	return nil
}
