package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type lineItemJSON struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	SlotID    SlotID          `json:"slot_id,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	slot, _ := li.Identity.SlotID()
	return json.Marshal(lineItemJSON{
		Product:   li.Product,
		Quantity:  li.Quantity,
		SlotID:    slot,
		LineTotal: li.LineTotal(),
	})
}

// UnmarshalJSON restores the identity from slot_id: lines without one are
// ByProduct lines of their product.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	li.Product = raw.Product
	li.Quantity = raw.Quantity
	if raw.SlotID != "" {
		li.Identity = SlotIdentity(raw.SlotID)
	} else {
		li.Identity = ProductIdentity(raw.Product.ID)
	}
	return nil
}

type stateJSON struct {
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Items:       s.Items(),
		TotalItems:  s.totals.TotalItems,
		TotalAmount: s.totals.TotalAmount,
	})
}

// UnmarshalJSON ignores any stored totals and recomputes them from the items.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FromItems(raw.Items)
	return nil
}
