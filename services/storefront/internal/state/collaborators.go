package state

import "context"

// PendingAction is an operation deferred until the shopper signs in. The
// auth collaborator runs it at most once, with the context of the login that
// completed.
type PendingAction = func(ctx context.Context)

// Auth is the authentication collaborator the cart consults before any
// server-backed mutation.
type Auth interface {
	IsAuthenticated() bool
	OpenLoginModal()
	SetPendingAction(action PendingAction)
}

// CartAPI is the remote cart collaborator. Every method returns the raw
// response body, which the cart passes through the response normalizer.
type CartAPI interface {
	GetCart(ctx context.Context) ([]byte, error)
	AddToCart(ctx context.Context, productID string, quantity int) ([]byte, error)
	RemoveFromCart(ctx context.Context, productID string) ([]byte, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) ([]byte, error)
	ClearCart(ctx context.Context) ([]byte, error)
}
