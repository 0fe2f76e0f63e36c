// Package cart holds the in-memory shopping cart of a single customer
// session. The cart is owned by one session; the mutex only guards against
// concurrent handlers of that session, not cross-session sharing.
package cart

import (
	"sync"

	"github.com/tconnectmw/store-system/internal/model"
)

// Cart is an ordered collection of line items keyed by item ID.
type Cart struct {
	mu    sync.Mutex
	items []model.CartLineItem
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add inserts a line item. Adding an ID already in the cart merges the
// quantities instead of duplicating the line.
func (c *Cart) Add(item model.CartLineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += item.Quantity
			return
		}
	}
	c.items = append(c.items, copyItem(item))
}

// Increment bumps the quantity of the given line by one.
func (c *Cart) Increment(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity++
			return
		}
	}
}

// Decrement lowers the quantity of the given line by one. Removing the last
// unit removes the line entirely.
func (c *Cart) Decrement(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID != id {
			continue
		}
		if c.items[i].Quantity <= 1 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity--
		}
		return
	}
}

// Remove deletes the line with the given ID regardless of quantity.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a deep copy of the cart contents in insertion order.
func (c *Cart) Items() []model.CartLineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartLineItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, copyItem(item))
	}
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

func copyItem(item model.CartLineItem) model.CartLineItem {
	if item.Metadata != nil {
		meta := make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			meta[k] = v
		}
		item.Metadata = meta
	}
	return item
}
