package repository

import (
	"context"

	"github.com/utafrali/storefront/services/storefront/internal/domain"
)

// SessionRepository defines the interface for storefront session persistence.
// Only the identity token is stored; carts and wishlists never are.
type SessionRepository interface {
	// Get retrieves a session record by session ID.
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	// Save persists a session record, overwriting any existing one and
	// resetting its expiry.
	Save(ctx context.Context, record *domain.SessionRecord) error

	// Delete removes a session record by session ID.
	Delete(ctx context.Context, sessionID string) error
}
