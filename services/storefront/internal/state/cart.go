// Package state holds a storefront session's cart and wishlist. The cart is
// mirrored from the remote cart API for signed-in shoppers; the wishlist is
// kept in memory only.
package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/normalize"
	"github.com/utafrali/storefront/services/storefront/internal/notify"
)

// itemsKey names the list field inside {"data": {...}} cart payloads.
const itemsKey = "items"

// Status is the lifecycle of the cart's line collection.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

// Snapshot is a consistent read of the cart with derived totals.
type Snapshot struct {
	Status     Status            `json:"-"`
	Items      []domain.CartLine `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

// Cart mirrors a shopper's server-side cart. Remote mutations are not
// serialized: overlapping calls each issue their own request and whichever
// response resolves last determines the visible lines. The mutex only
// protects memory.
type Cart struct {
	api      CartAPI
	auth     Auth
	notifier notify.Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	items   []domain.CartLine
	status  Status
	lastErr error
}

// NewCart creates an empty cart bound to the given collaborators.
func NewCart(api CartAPI, auth Auth, notifier notify.Notifier, logger *slog.Logger) *Cart {
	return &Cart{
		api:      api,
		auth:     auth,
		notifier: notifier,
		logger:   logger,
		items:    []domain.CartLine{},
		status:   StatusEmpty,
	}
}

// Sync reconciles the cart with the current authentication state. Signed-out
// sessions are reset locally; signed-in sessions fetch the server cart. A
// failed fetch keeps the previously displayed lines.
func (c *Cart) Sync(ctx context.Context) error {
	if !c.auth.IsAuthenticated() {
		c.reset()
		return nil
	}

	c.mu.Lock()
	c.status = StatusLoading
	c.mu.Unlock()

	return c.fetch(ctx, opSync)
}

// OnAuthChange satisfies the auth collaborator's listener signature.
func (c *Cart) OnAuthChange(ctx context.Context, _ bool) {
	_ = c.Sync(ctx)
}

// Add puts quantity units of a product in the cart. Arguments are checked
// first. For signed-out shoppers the add is then parked as a pending action,
// the login prompt is opened and an info toast explains why; the lines do
// not change.
func (c *Cart) Add(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}
	if !c.auth.IsAuthenticated() {
		c.auth.SetPendingAction(func(ctx context.Context) {
			_ = c.Add(ctx, productID, quantity)
		})
		c.auth.OpenLoginModal()
		c.notifier.Notify(ctx, notify.Info("Sign in to add items to your cart"))
		cartOperationsTotal.WithLabelValues(opAdd, resultDeferred).Inc()
		c.logger.DebugContext(ctx, "cart add deferred until login",
			slog.String("product_id", productID),
		)
		return nil
	}

	body, err := c.api.AddToCart(ctx, productID, quantity)
	if err != nil {
		c.fail(ctx, opAdd, err, "Could not add the item to your cart")
		return err
	}
	if err := c.apply(ctx, opAdd, body); err != nil {
		return err
	}

	c.notifier.Notify(ctx, notify.Success("Added to cart"))
	c.logger.InfoContext(ctx, "item added to cart",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// Remove drops a product from the cart. It is a no-op for signed-out
// shoppers.
func (c *Cart) Remove(ctx context.Context, productID string) error {
	if !c.auth.IsAuthenticated() {
		return nil
	}

	body, err := c.api.RemoveFromCart(ctx, productID)
	if err != nil {
		c.fail(ctx, opRemove, err, "Could not remove the item from your cart")
		return err
	}
	if err := c.apply(ctx, opRemove, body); err != nil {
		return err
	}

	c.notifier.Notify(ctx, notify.Success("Removed from cart"))
	c.logger.InfoContext(ctx, "item removed from cart",
		slog.String("product_id", productID),
	)
	return nil
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(ctx, productID)
	}
	if !c.auth.IsAuthenticated() {
		return nil
	}

	body, err := c.api.UpdateQuantity(ctx, productID, quantity)
	if err != nil {
		c.fail(ctx, opUpdate, err, "Could not update the quantity")
		return err
	}
	if err := c.apply(ctx, opUpdate, body); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// Clear empties the server cart and then the local lines.
func (c *Cart) Clear(ctx context.Context) error {
	if !c.auth.IsAuthenticated() {
		return nil
	}

	if _, err := c.api.ClearCart(ctx); err != nil {
		c.fail(ctx, opClear, err, "Could not clear your cart")
		return err
	}

	c.mu.Lock()
	c.items = []domain.CartLine{}
	c.status = StatusReady
	c.lastErr = nil
	c.mu.Unlock()

	cartOperationsTotal.WithLabelValues(opClear, resultSuccess).Inc()
	c.notifier.Notify(ctx, notify.Success("Cart cleared"))
	c.logger.InfoContext(ctx, "cart cleared")
	return nil
}

// Status returns the current lifecycle state.
func (c *Cart) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Err returns the error from the most recent failed fetch, if the cart is
// in StatusError.
func (c *Cart) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []domain.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CartLine, len(c.items))
	copy(out, c.items)
	return out
}

// TotalItems is the sum of line quantities, computed on every call.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TotalItems(c.items)
}

// TotalPrice is the sum of line subtotals at effective prices, computed on
// every call.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TotalPrice(c.items)
}

// Snapshot returns lines and totals read under a single lock.
func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]domain.CartLine, len(c.items))
	copy(items, c.items)
	return Snapshot{
		Status:     c.status,
		Items:      items,
		TotalItems: domain.TotalItems(items),
		TotalPrice: domain.TotalPrice(items),
	}
}

// fetch loads the full server cart and replaces the local lines.
func (c *Cart) fetch(ctx context.Context, op string) error {
	ctx, span := tracing.Start(ctx, "cart.fetch", attribute.String("cart.operation", op))
	defer span.End()

	body, err := c.api.GetCart(ctx)
	if err != nil {
		c.mu.Lock()
		c.status = StatusError
		c.lastErr = err
		c.mu.Unlock()
		c.fail(ctx, op, err, "Could not load your cart")
		return err
	}

	res := normalize.Decode(body, itemsKey)
	cartResponseShapes.WithLabelValues(res.Shape.String()).Inc()
	span.SetAttributes(attribute.String("cart.response_shape", res.Shape.String()))
	if !res.Recognized() {
		c.logger.DebugContext(ctx, "cart payload unrecognized, treating as empty",
			slog.String("operation", op),
		)
	}
	c.replace(normalize.Into[domain.CartLine](res))
	cartOperationsTotal.WithLabelValues(op, resultSuccess).Inc()
	return nil
}

// apply replaces the local lines from a mutation response. A response that
// does not carry an items collection triggers a full re-fetch instead.
func (c *Cart) apply(ctx context.Context, op string, body []byte) error {
	res := normalize.Decode(body, itemsKey)
	cartResponseShapes.WithLabelValues(res.Shape.String()).Inc()

	if !res.Recognized() {
		cartOperationsTotal.WithLabelValues(op, resultRefetch).Inc()
		c.logger.DebugContext(ctx, "cart mutation response without items, re-fetching",
			slog.String("operation", op),
		)
		return c.fetch(ctx, op)
	}

	c.replace(normalize.Into[domain.CartLine](res))
	cartOperationsTotal.WithLabelValues(op, resultSuccess).Inc()
	return nil
}

func (c *Cart) replace(lines []domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = domain.PositiveLines(lines)
	c.status = StatusReady
	c.lastErr = nil
}

func (c *Cart) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = []domain.CartLine{}
	c.status = StatusEmpty
	c.lastErr = nil
}

// fail reports a remote failure once and leaves the lines untouched.
func (c *Cart) fail(ctx context.Context, op string, err error, message string) {
	tracing.RecordError(ctx, err)
	cartOperationsTotal.WithLabelValues(op, resultFailure).Inc()
	c.logger.ErrorContext(ctx, "cart operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	c.notifier.Notify(ctx, notify.Error(message))
}
