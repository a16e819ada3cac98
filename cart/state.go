package cart

import "github.com/shopspring/decimal"

// LineItem is one entry of the cart.
type LineItem struct {
	Identity Identity
	Product  Product
	Quantity int
}

// LineTotal is the unit price times the quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Totals are derived from the items and never stored independently of them.
type Totals struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func computeTotals(items []LineItem) Totals {
	t := Totals{TotalAmount: decimal.Zero}
	for _, item := range items {
		t.TotalItems += item.Quantity
		t.TotalAmount = t.TotalAmount.Add(item.LineTotal())
	}
	return t
}

// State is an immutable cart snapshot. Every operation returns a new State
// whose totals were recomputed from its items; the receiver is left
// untouched. Operations that match nothing return the receiver unchanged.
//
// The zero State is an empty cart.
type State struct {
	items  []LineItem
	totals Totals
}

// Empty returns a cart with no items and zero totals.
func Empty() State {
	return State{totals: Totals{TotalAmount: decimal.Zero}}
}

// FromItems builds a State from previously stored items. Lines with a
// non-positive quantity are dropped.
func FromItems(items []LineItem) State {
	kept := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	return withItems(kept)
}

func withItems(items []LineItem) State {
	return State{items: items, totals: computeTotals(items)}
}

// Items returns a copy of the line items in insertion order.
func (s State) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s State) Len() int { return len(s.items) }

func (s State) IsEmpty() bool { return len(s.items) == 0 }

func (s State) Totals() Totals { return s.totals }

// Find returns the line item the selector addresses.
func (s State) Find(sel Selector) (LineItem, bool) {
	if i := s.index(sel); i >= 0 {
		return s.items[i], true
	}
	return LineItem{}, false
}

func (s State) index(sel Selector) int {
	for i, item := range s.items {
		if sel.matches(item) {
			return i
		}
	}
	return -1
}

func (s State) hasSlot(id SlotID) bool {
	return s.index(SelectSlot(id)) >= 0
}

func (s State) clone(extra int) []LineItem {
	out := make([]LineItem, len(s.items), len(s.items)+extra)
	copy(out, s.items)
	return out
}

// AddItem adds quantity of p to its ByProduct line, creating the line at the
// end when the product is not in the cart yet. A non-positive quantity is
// ignored. Stock is not enforced here.
func (s State) AddItem(p Product, quantity int) State {
	if quantity <= 0 {
		return s
	}
	sel := SelectProduct(p.ID)
	if i := s.index(sel); i >= 0 {
		items := s.clone(0)
		items[i].Quantity += quantity
		return withItems(items)
	}
	items := s.clone(1)
	items = append(items, LineItem{
		Identity: ProductIdentity(p.ID),
		Product:  p,
		Quantity: quantity,
	})
	return withItems(items)
}

// AddDuplicateItem appends a new BySlot line for p, whatever lines already
// exist for the same product. A non-positive quantity or an empty slot id is
// ignored, and so is a slot id already in use.
func (s State) AddDuplicateItem(slot SlotID, p Product, quantity int) State {
	if quantity <= 0 || slot == "" || s.hasSlot(slot) {
		return s
	}
	items := s.clone(1)
	items = append(items, LineItem{
		Identity: SlotIdentity(slot),
		Product:  p,
		Quantity: quantity,
	})
	return withItems(items)
}

// RemoveItem drops the line the selector addresses.
func (s State) RemoveItem(sel Selector) State {
	i := s.index(sel)
	if i < 0 {
		return s
	}
	items := make([]LineItem, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	return withItems(items)
}

// UpdateQuantity sets the quantity of the addressed line. A quantity of zero
// or less removes the line.
func (s State) UpdateQuantity(sel Selector, quantity int) State {
	i := s.index(sel)
	if i < 0 {
		return s
	}
	if quantity <= 0 {
		return s.RemoveItem(sel)
	}
	items := s.clone(0)
	items[i].Quantity = quantity
	return withItems(items)
}

// Clear empties the cart.
func (s State) Clear() State {
	return Empty()
}
