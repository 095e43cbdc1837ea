package state

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/utafrali/storefront/services/storefront/internal/domain"
)

// Wishlist is a session-local set of saved products keyed by product id. It
// never talks to a server and every operation is idempotent.
type Wishlist struct {
	mu      sync.RWMutex
	entries []domain.WishlistEntry
	now     func() time.Time
}

// NewWishlist creates an empty wishlist.
func NewWishlist() *Wishlist {
	return &Wishlist{
		entries: []domain.WishlistEntry{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add saves a product. It reports false when the product has no id or is
// already present.
func (w *Wishlist) Add(product domain.Product) bool {
	if product.ID == "" {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.indexOf(product.ID) >= 0 {
		return false
	}
	w.entries = append(w.entries, domain.WishlistEntry{
		Product: product,
		AddedAt: w.now(),
	})
	return true
}

// Remove drops a product by id. It reports whether anything was removed.
func (w *Wishlist) Remove(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	before := len(w.entries)
	w.entries = lo.Reject(w.entries, func(e domain.WishlistEntry, _ int) bool {
		return e.Product.ID == productID
	})
	return len(w.entries) != before
}

// Clear empties the wishlist.
func (w *Wishlist) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = []domain.WishlistEntry{}
}

// Contains reports whether the product is saved.
func (w *Wishlist) Contains(productID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.indexOf(productID) >= 0
}

// Items returns a copy of the entries in insertion order.
func (w *Wishlist) Items() []domain.WishlistEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.WishlistEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of saved products.
func (w *Wishlist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

func (w *Wishlist) indexOf(productID string) int {
	_, idx, found := lo.FindIndexOf(w.entries, func(e domain.WishlistEntry) bool {
		return e.Product.ID == productID
	})
	if !found {
		return -1
	}
	return idx
}
