package cart

import "github.com/google/uuid"

// IdentityKind tells how a line item is addressed.
type IdentityKind uint8

const (
	// ByProduct lines are unique per product id; adding the same product
	// again grows the existing line.
	ByProduct IdentityKind = iota + 1
	// BySlot lines carry a synthetic slot id, so one product may appear on
	// several independent lines.
	BySlot
)

func (k IdentityKind) String() string {
	switch k {
	case ByProduct:
		return "by_product"
	case BySlot:
		return "by_slot"
	default:
		return "unknown"
	}
}

// SlotID identifies a duplicate line item.
type SlotID string

// NewSlotID returns a UUIDv7 string: a millisecond timestamp followed by
// random bits.
func NewSlotID() SlotID {
	return SlotID(uuid.Must(uuid.NewV7()).String())
}

// Identity is the tagged identity of a line item. Build it with
// ProductIdentity or SlotIdentity.
type Identity struct {
	kind IdentityKind
	key  string
}

func ProductIdentity(productID string) Identity {
	return Identity{kind: ByProduct, key: productID}
}

func SlotIdentity(id SlotID) Identity {
	return Identity{kind: BySlot, key: string(id)}
}

func (i Identity) Kind() IdentityKind { return i.kind }

// ProductID returns the product id of a ByProduct identity.
func (i Identity) ProductID() (string, bool) {
	if i.kind != ByProduct {
		return "", false
	}
	return i.key, true
}

// SlotID returns the slot id of a BySlot identity.
func (i Identity) SlotID() (SlotID, bool) {
	if i.kind != BySlot {
		return "", false
	}
	return SlotID(i.key), true
}

func (i Identity) String() string {
	return i.kind.String() + ":" + i.key
}

// Selector addresses a line item for removal or quantity updates. When SlotID
// is set it wins and matching is slot-precise; otherwise ProductID matches the
// ByProduct line of that product.
type Selector struct {
	ProductID string
	SlotID    SlotID
}

func SelectProduct(productID string) Selector {
	return Selector{ProductID: productID}
}

func SelectSlot(id SlotID) Selector {
	return Selector{SlotID: id}
}

// IsZero reports whether the selector can match nothing.
func (s Selector) IsZero() bool {
	return s.ProductID == "" && s.SlotID == ""
}

func (s Selector) matches(item LineItem) bool {
	if s.SlotID != "" {
		id, ok := item.Identity.SlotID()
		return ok && id == s.SlotID
	}
	id, ok := item.Identity.ProductID()
	return ok && s.ProductID != "" && id == s.ProductID
}
