package app

import (
	"context"
	"encoding/json"
	"sync"

	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
)

// CartStorageKey is the fixed key prefix cart state persists under.
const CartStorageKey = "cart-storage"

// Cart is a quantity-tracked collection of purchasable items. All operations
// are total functions over the in-memory lines; every mutation is persisted
// best-effort so the cart survives reloads. There is no expiry.
type Cart struct {
	mu    sync.Mutex
	store docstore.StateStore
	key   string
	items []domain.CartItem
}

// NewCart builds a cart bound to a client token, restoring any persisted
// lines. A load failure just starts an empty cart.
func NewCart(ctx context.Context, store docstore.StateStore, token string) *Cart {
	c := &Cart{store: store, key: CartStorageKey + ":" + token}
	if raw, err := store.Load(ctx, c.key); err == nil {
		_ = json.Unmarshal(raw, &c.items)
	}
	return c
}

// AddItem increments the quantity of an existing line for the book, or
// appends a new line with quantity one.
func (c *Cart) AddItem(ctx context.Context, book domain.Book) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Book.ID == book.ID {
			c.items[i].Quantity++
			c.persistLocked(ctx)
			return
		}
	}
	c.items = append(c.items, domain.CartItem{Book: book, Quantity: 1})
	c.persistLocked(ctx)
}

// RemoveItem deletes the line unconditionally.
func (c *Cart) RemoveItem(ctx context.Context, bookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Book.ID == bookID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.persistLocked(ctx)
}

// UpdateQuantity clamps quantity to a minimum of zero, dropping the line
// entirely when it reaches zero.
func (c *Cart) UpdateQuantity(ctx context.Context, bookID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Book.ID != bookID {
			continue
		}
		if quantity == 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity = quantity
		}
		break
	}
	c.persistLocked(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.persistLocked(ctx)
}

// Items returns a copy of the cart lines.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Total is the sum of price times quantity across all lines, recomputed on
// demand.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, item := range c.items {
		total += item.Book.Price * float64(item.Quantity)
	}
	return total
}

func (c *Cart) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(c.items)
	if err != nil {
		return
	}
	_ = c.store.Save(ctx, c.key, raw)
}
