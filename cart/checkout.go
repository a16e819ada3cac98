package cart

import "github.com/shopspring/decimal"

// CheckoutLine is the shape the order flow consumes for each line item.
type CheckoutLine struct {
	ProductID string          `json:"product_id"`
	SlotID    SlotID          `json:"slot_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CheckoutLines projects the items, in cart order, for order creation.
func (s State) CheckoutLines() []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(s.items))
	for _, item := range s.items {
		slot, _ := item.Identity.SlotID()
		lines = append(lines, CheckoutLine{
			ProductID: item.Product.ID,
			SlotID:    slot,
			Name:      item.Product.Name,
			SKU:       item.Product.SKU,
			ImageURL:  item.Product.Thumbnail(),
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
			LineTotal: item.LineTotal(),
		})
	}
	return lines
}

// without subtracts the quantities of ordered from the matching lines of s.
// Lines absent from ordered, and quantity added to a line after ordered was
// taken, are kept.
func (s State) without(ordered State) State {
	if len(ordered.items) == 0 {
		return s
	}
	taken := make(map[Identity]int, len(ordered.items))
	for _, item := range ordered.items {
		taken[item.Identity] += item.Quantity
	}
	items := make([]LineItem, 0, len(s.items))
	for _, item := range s.items {
		item.Quantity -= taken[item.Identity]
		if item.Quantity > 0 {
			items = append(items, item)
		}
	}
	return withItems(items)
}
