package cart

import (
	"testing"

	"github.com/tconnectmw/store-system/internal/model"
)

func item(id string, qty int) model.CartLineItem {
	return model.CartLineItem{
		ID:           id,
		Name:         "Steam Gift Card",
		Type:         model.ProductTypeGiftCard,
		UnitPriceUSD: 10,
		Quantity:     qty,
	}
}

func TestAddMergesSameID(t *testing.T) {
	c := New()
	c.Add(item("g1", 1))
	c.Add(item("g1", 2))

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1 merged line", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", items[0].Quantity)
	}
}

func TestDecrementRemovesLastUnit(t *testing.T) {
	c := New()
	c.Add(item("g1", 2))

	c.Decrement("g1")
	if got := c.Items()[0].Quantity; got != 1 {
		t.Fatalf("quantity = %d, want 1", got)
	}

	c.Decrement("g1")
	if !c.IsEmpty() {
		t.Fatalf("removing the last unit must remove the line")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	c.Add(item("g1", 1))
	c.Add(item("g2", 5))

	c.Remove("g1")
	if c.Len() != 1 {
		t.Fatalf("len after remove = %d, want 1", c.Len())
	}

	c.Clear()
	if !c.IsEmpty() {
		t.Fatalf("cart not empty after clear")
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New()
	i := item("g1", 1)
	i.Metadata = map[string]string{"walletEmail": "a@b.mw"}
	c.Add(i)

	snap := c.Items()
	snap[0].Quantity = 99
	snap[0].Metadata["walletEmail"] = "mutated"

	fresh := c.Items()
	if fresh[0].Quantity != 1 {
		t.Fatalf("quantity mutated through snapshot")
	}
	if fresh[0].Metadata["walletEmail"] != "a@b.mw" {
		t.Fatalf("metadata mutated through snapshot")
	}
}

func TestAddNormalizesQuantity(t *testing.T) {
	c := New()
	c.Add(item("g1", 0))

	if got := c.Items()[0].Quantity; got != 1 {
		t.Fatalf("quantity = %d, want 1", got)
	}
}
