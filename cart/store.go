package cart

// Store is the mutable handle a session holds on its cart. It applies State
// operations to its current state and supplies slot ids for duplicate adds.
// A Store is not safe for concurrent use; Registry serialises access.
type Store struct {
	state     State
	newSlotID func() SlotID
}

type StoreOption func(*Store)

// WithSlotIDs replaces the slot id generator.
func WithSlotIDs(gen func() SlotID) StoreOption {
	return func(s *Store) { s.newSlotID = gen }
}

// WithState starts the store from a previously saved state.
func WithState(state State) StoreOption {
	return func(s *Store) { s.state = state }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{state: Empty(), newSlotID: NewSlotID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) State() State { return s.state }

func (s *Store) Totals() Totals { return s.state.Totals() }

func (s *Store) AddItem(p Product, quantity int) State {
	s.state = s.state.AddItem(p, quantity)
	return s.state
}

// maxSlotAttempts bounds how often AddDuplicateItem asks the generator for
// an unused slot id before giving up.
const maxSlotAttempts = 8

// AddDuplicateItem adds p on a fresh slot line. If the generator keeps
// returning empty or used ids the cart is left unchanged.
func (s *Store) AddDuplicateItem(p Product, quantity int) State {
	if quantity <= 0 {
		return s.state
	}
	for attempt := 0; attempt < maxSlotAttempts; attempt++ {
		id := s.newSlotID()
		if id == "" || s.state.hasSlot(id) {
			continue
		}
		s.state = s.state.AddDuplicateItem(id, p, quantity)
		break
	}
	return s.state
}

func (s *Store) RemoveItem(sel Selector) State {
	s.state = s.state.RemoveItem(sel)
	return s.state
}

func (s *Store) UpdateQuantity(sel Selector, quantity int) State {
	s.state = s.state.UpdateQuantity(sel, quantity)
	return s.state
}

// remove takes the lines of ordered out of the cart.
func (s *Store) remove(ordered State) State {
	s.state = s.state.without(ordered)
	return s.state
}

func (s *Store) Clear() State {
	s.state = s.state.Clear()
	return s.state
}
