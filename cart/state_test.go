package cart

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var cmpOpts = cmp.Options{
	cmp.AllowUnexported(Identity{}),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func testProduct(id string, price int64) Product {
	return Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(price), SKU: "SKU-" + id}
}

// counterSlots returns a deterministic slot id generator.
func counterSlots() func() SlotID {
	n := 0
	return func() SlotID {
		n++
		return SlotID(fmt.Sprintf("slot-%d", n))
	}
}

// assertConsistent checks that the totals match the items.
func assertConsistent(t *testing.T, s State) {
	t.Helper()
	wantItems := 0
	wantAmount := decimal.Zero
	for _, item := range s.Items() {
		if item.Quantity <= 0 {
			t.Fatalf("line %s has non-positive quantity %d", item.Identity, item.Quantity)
		}
		wantItems += item.Quantity
		wantAmount = wantAmount.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	got := s.Totals()
	if got.TotalItems != wantItems {
		t.Errorf("expected total items %d, got %d", wantItems, got.TotalItems)
	}
	if !got.TotalAmount.Equal(wantAmount) {
		t.Errorf("expected total amount %s, got %s", wantAmount, got.TotalAmount)
	}
}

func TestAddItemCoalescesByProduct(t *testing.T) {
	a := testProduct("A", 10)

	s := Empty().AddItem(a, 2)
	if got := s.Totals(); got.TotalItems != 2 || !got.TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected {2, 20}, got {%d, %s}", got.TotalItems, got.TotalAmount)
	}

	s = s.AddItem(a, 3)
	if got := s.Totals(); got.TotalItems != 5 || !got.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected {5, 50}, got {%d, %s}", got.TotalItems, got.TotalAmount)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one line item, got %d", s.Len())
	}
	item, ok := s.Find(SelectProduct("A"))
	if !ok || item.Quantity != 5 {
		t.Errorf("expected quantity 5, got %+v", item)
	}
}

func TestAddItemQuantitySumsAcrossCalls(t *testing.T) {
	tests := [][]int{
		{1},
		{1, 1, 1},
		{4, 7, 2, 9},
		{100, 1},
	}
	for _, quantities := range tests {
		t.Run(fmt.Sprint(quantities), func(t *testing.T) {
			p := testProduct("P", 3)
			s := Empty()
			sum := 0
			for _, q := range quantities {
				s = s.AddItem(p, q)
				sum += q
				assertConsistent(t, s)
			}
			if s.Len() != 1 {
				t.Fatalf("expected exactly one line, got %d", s.Len())
			}
			if item, _ := s.Find(SelectProduct("P")); item.Quantity != sum {
				t.Errorf("expected quantity %d, got %d", sum, item.Quantity)
			}
		})
	}
}

func TestAddItemIgnoresNonPositiveQuantity(t *testing.T) {
	s := Empty().AddItem(testProduct("A", 10), 1)
	for _, q := range []int{0, -1, -50} {
		next := s.AddItem(testProduct("A", 10), q)
		if diff := cmp.Diff(s.Items(), next.Items(), cmpOpts); diff != "" {
			t.Errorf("AddItem(%d) changed the cart (-before +after):\n%s", q, diff)
		}
		next = s.AddItem(testProduct("B", 10), q)
		if next.Len() != 1 {
			t.Errorf("AddItem(%d) appended a line", q)
		}
	}
}

func TestAddDuplicateItemCreatesDistinctSlots(t *testing.T) {
	b := testProduct("B", 5)
	store := NewStore()

	store.AddDuplicateItem(b, 1)
	s := store.AddDuplicateItem(b, 1)

	if s.Len() != 2 {
		t.Fatalf("expected two line items for B, got %d", s.Len())
	}
	if got := s.Totals(); got.TotalItems != 2 || !got.TotalAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected {2, 10}, got {%d, %s}", got.TotalItems, got.TotalAmount)
	}

	const n = 50
	for i := 0; i < n; i++ {
		store.AddDuplicateItem(b, i+1)
	}
	seen := map[SlotID]bool{}
	for _, item := range store.State().Items() {
		id, ok := item.Identity.SlotID()
		if !ok {
			t.Fatalf("expected a slot identity, got %s", item.Identity)
		}
		if seen[id] {
			t.Fatalf("slot id %s used twice", id)
		}
		seen[id] = true
	}
	if len(seen) != n+2 {
		t.Errorf("expected %d distinct slots, got %d", n+2, len(seen))
	}
	assertConsistent(t, store.State())
}

func TestAddDuplicateItemRejectsReusedSlot(t *testing.T) {
	p := testProduct("A", 1)
	s := Empty().AddDuplicateItem("s1", p, 1)
	if next := s.AddDuplicateItem("s1", p, 4); next.Len() != 1 {
		t.Errorf("expected reused slot id to be ignored, got %d lines", next.Len())
	}
	if next := s.AddDuplicateItem("", p, 4); next.Len() != 1 {
		t.Errorf("expected empty slot id to be ignored, got %d lines", next.Len())
	}
}

func TestStoreRegeneratesCollidingSlotID(t *testing.T) {
	ids := []SlotID{"x", "x", "", "y"}
	gen := func() SlotID {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	store := NewStore(WithSlotIDs(gen))
	p := testProduct("A", 1)
	store.AddDuplicateItem(p, 1)
	s := store.AddDuplicateItem(p, 1)

	if s.Len() != 2 {
		t.Fatalf("expected two lines, got %d", s.Len())
	}
	if _, ok := s.Find(SelectSlot("y")); !ok {
		t.Error("expected second line to use slot y")
	}
}

func TestStoreGivesUpOnExhaustedSlotGenerator(t *testing.T) {
	calls := 0
	stuck := func() SlotID {
		calls++
		return "slot-1"
	}
	store := NewStore(WithSlotIDs(stuck))
	p := testProduct("A", 1)
	store.AddDuplicateItem(p, 1)
	calls = 0
	s := store.AddDuplicateItem(p, 1)

	if s.Len() != 1 {
		t.Errorf("expected the second add to be dropped, got %d lines", s.Len())
	}
	if calls != maxSlotAttempts {
		t.Errorf("expected %d attempts, got %d", maxSlotAttempts, calls)
	}

	blank := NewStore(WithSlotIDs(func() SlotID { return "" }))
	if !blank.AddDuplicateItem(p, 1).IsEmpty() {
		t.Error("expected no line without a usable slot id")
	}
}

func TestPlainAddDoesNotMergeIntoSlotLine(t *testing.T) {
	p := testProduct("A", 10)
	s := Empty().AddDuplicateItem("s1", p, 2)
	s = s.AddItem(p, 3)

	if s.Len() != 2 {
		t.Fatalf("expected a separate by-product line, got %d lines", s.Len())
	}
	slotLine, _ := s.Find(SelectSlot("s1"))
	if slotLine.Quantity != 2 {
		t.Errorf("expected slot line to keep quantity 2, got %d", slotLine.Quantity)
	}
	productLine, _ := s.Find(SelectProduct("A"))
	if productLine.Quantity != 3 {
		t.Errorf("expected by-product line quantity 3, got %d", productLine.Quantity)
	}
}

func TestUpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -1} {
		t.Run(fmt.Sprint(q), func(t *testing.T) {
			a := testProduct("A", 10)
			c := testProduct("C", 8)
			s := Empty().AddItem(a, 1).AddItem(c, 4)

			s = s.UpdateQuantity(SelectProduct("C"), q)

			if _, ok := s.Find(SelectProduct("C")); ok {
				t.Fatal("expected C to be removed")
			}
			if got := s.Totals(); got.TotalItems != 1 || !got.TotalAmount.Equal(decimal.NewFromInt(10)) {
				t.Errorf("expected {1, 10}, got {%d, %s}", got.TotalItems, got.TotalAmount)
			}
		})
	}
}

func TestUpdateQuantitySetsValue(t *testing.T) {
	s := Empty().AddItem(testProduct("A", 2), 7)
	s = s.UpdateQuantity(SelectProduct("A"), 3)

	item, _ := s.Find(SelectProduct("A"))
	if item.Quantity != 3 {
		t.Errorf("expected quantity to be set to 3, got %d", item.Quantity)
	}
	assertConsistent(t, s)
}

func TestUpdateQuantityUnknownSelectorIsNoop(t *testing.T) {
	s := Empty().AddItem(testProduct("A", 2), 1)
	next := s.UpdateQuantity(SelectProduct("missing"), 5)
	if diff := cmp.Diff(s.Items(), next.Items(), cmpOpts); diff != "" {
		t.Errorf("unexpected change (-before +after):\n%s", diff)
	}
}

func TestSlotSelectorTakesPrecedence(t *testing.T) {
	p := testProduct("A", 10)
	s := Empty().AddItem(p, 1).AddDuplicateItem("s1", p, 2).AddDuplicateItem("s2", p, 3)

	removed := s.RemoveItem(Selector{ProductID: "A", SlotID: "s1"})
	if removed.Len() != 2 {
		t.Fatalf("expected only slot s1 removed, got %d lines", removed.Len())
	}
	if _, ok := removed.Find(SelectProduct("A")); !ok {
		t.Error("expected by-product line to survive slot removal")
	}
	if _, ok := removed.Find(SelectSlot("s1")); ok {
		t.Error("expected slot s1 to be gone")
	}

	updated := s.UpdateQuantity(Selector{ProductID: "A", SlotID: "s2"}, 9)
	if line, _ := updated.Find(SelectSlot("s2")); line.Quantity != 9 {
		t.Errorf("expected slot s2 quantity 9, got %d", line.Quantity)
	}
	if line, _ := updated.Find(SelectProduct("A")); line.Quantity != 1 {
		t.Errorf("expected by-product quantity 1, got %d", line.Quantity)
	}

	// An unknown slot does not fall back to the product id.
	if next := s.RemoveItem(Selector{ProductID: "A", SlotID: "nope"}); next.Len() != 3 {
		t.Errorf("expected no-op for unknown slot, got %d lines", next.Len())
	}
}

func TestRemoveByProductLeavesSlotLines(t *testing.T) {
	p := testProduct("A", 10)
	s := Empty().AddItem(p, 1).AddDuplicateItem("s1", p, 2)

	s = s.RemoveItem(SelectProduct("A"))

	if s.Len() != 1 {
		t.Fatalf("expected slot line to remain, got %d lines", s.Len())
	}
	if _, ok := s.Find(SelectSlot("s1")); !ok {
		t.Error("expected slot s1 to remain")
	}
	assertConsistent(t, s)
}

func TestRemoveItemUnknownSelectorIsNoop(t *testing.T) {
	s := Empty().RemoveItem(SelectProduct("nonexistent"))
	if !s.IsEmpty() || s.Totals().TotalItems != 0 || !s.Totals().TotalAmount.IsZero() {
		t.Errorf("expected empty cart, got %+v", s.Totals())
	}

	full := Empty().AddItem(testProduct("A", 4), 2)
	for _, sel := range []Selector{SelectProduct("nonexistent"), SelectSlot("nonexistent"), {}} {
		next := full.RemoveItem(sel)
		if diff := cmp.Diff(full.Items(), next.Items(), cmpOpts); diff != "" {
			t.Errorf("RemoveItem(%+v) changed the cart:\n%s", sel, diff)
		}
	}

	twice := full.RemoveItem(SelectProduct("A")).RemoveItem(SelectProduct("A"))
	if !twice.IsEmpty() {
		t.Errorf("expected empty cart after double remove, got %d lines", twice.Len())
	}
}

func TestRemoveLastItemZeroesTotals(t *testing.T) {
	s := Empty().AddItem(testProduct("A", 4), 2).RemoveItem(SelectProduct("A"))
	if !s.IsEmpty() {
		t.Fatalf("expected empty items, got %d", s.Len())
	}
	if s.Totals().TotalItems != 0 || !s.Totals().TotalAmount.IsZero() {
		t.Errorf("expected zero totals, got %+v", s.Totals())
	}
}

func TestClearResetsCart(t *testing.T) {
	states := []State{
		Empty(),
		Empty().AddItem(testProduct("A", 3), 2),
		Empty().AddItem(testProduct("A", 3), 2).AddDuplicateItem("s", testProduct("B", 7), 9),
	}
	for _, s := range states {
		cleared := s.Clear()
		if !cleared.IsEmpty() || cleared.Totals().TotalItems != 0 || !cleared.Totals().TotalAmount.IsZero() {
			t.Errorf("expected cleared cart, got %d items and %+v", cleared.Len(), cleared.Totals())
		}
	}
}

func TestTotalsConsistentAfterEveryMutation(t *testing.T) {
	a := testProduct("A", 10)
	b := Product{ID: "B", Name: "Pen", Price: decimal.RequireFromString("2.35")}
	c := testProduct("C", 8)
	store := NewStore(WithSlotIDs(counterSlots()))

	steps := []func() State{
		func() State { return store.AddItem(a, 2) },
		func() State { return store.AddDuplicateItem(b, 3) },
		func() State { return store.AddItem(c, 4) },
		func() State { return store.AddDuplicateItem(b, 1) },
		func() State { return store.UpdateQuantity(SelectSlot("slot-1"), 10) },
		func() State { return store.AddItem(a, 1) },
		func() State { return store.UpdateQuantity(SelectProduct("C"), 0) },
		func() State { return store.RemoveItem(SelectSlot("slot-2")) },
		func() State { return store.UpdateQuantity(SelectProduct("A"), -3) },
		func() State { return store.RemoveItem(SelectProduct("missing")) },
		func() State { return store.Clear() },
	}
	for i, step := range steps {
		s := step()
		assertConsistent(t, s)
		got := store.Totals()
		if got.TotalItems != s.Totals().TotalItems || !got.TotalAmount.Equal(s.Totals().TotalAmount) {
			t.Fatalf("step %d: store totals drifted from returned state", i)
		}
	}
}

func TestOperationsDoNotMutateReceiver(t *testing.T) {
	p := testProduct("A", 10)
	before := Empty().AddItem(p, 1).AddDuplicateItem("s1", p, 2)
	snapshot := before.Items()

	before.AddItem(p, 5)
	before.UpdateQuantity(SelectSlot("s1"), 7)
	before.RemoveItem(SelectProduct("A"))
	before.Clear()

	if diff := cmp.Diff(snapshot, before.Items(), cmpOpts); diff != "" {
		t.Errorf("receiver was mutated (-want +got):\n%s", diff)
	}
}

func TestItemsKeepInsertionOrder(t *testing.T) {
	s := Empty().
		AddItem(testProduct("C", 1), 1).
		AddDuplicateItem("s1", testProduct("A", 1), 1).
		AddItem(testProduct("B", 1), 1).
		AddItem(testProduct("C", 1), 1)

	var got []string
	for _, item := range s.Items() {
		got = append(got, item.Identity.String())
	}
	want := []string{"by_product:C", "by_slot:s1", "by_product:B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestCheckoutLines(t *testing.T) {
	a := testProduct("A", 10)
	a.Images = []Image{{URL: "a1.jpg"}, {URL: "a2.jpg", IsThumbnail: true}}
	b := Product{ID: "B", Name: "Mug", Price: decimal.RequireFromString("4.50")}
	s := Empty().AddItem(a, 2).AddDuplicateItem("s1", b, 3)

	want := []CheckoutLine{
		{ProductID: "A", Name: "Product A", SKU: "SKU-A", ImageURL: "a2.jpg", Quantity: 2, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
		{ProductID: "B", SlotID: "s1", Name: "Mug", Quantity: 3, UnitPrice: decimal.RequireFromString("4.5"), LineTotal: decimal.RequireFromString("13.5")},
	}
	if diff := cmp.Diff(want, s.CheckoutLines(), cmpOpts); diff != "" {
		t.Errorf("unexpected checkout lines (-want +got):\n%s", diff)
	}
}

func TestUnmarshalRecomputesTotals(t *testing.T) {
	payload := `{
		"items": [
			{"product": {"id": "A", "name": "A", "price": "2.5"}, "quantity": 4},
			{"product": {"id": "A", "name": "A", "price": "2.5"}, "quantity": 1, "slot_id": "s1"},
			{"product": {"id": "B", "name": "B", "price": "1"}, "quantity": 0}
		],
		"total_items": 999,
		"total_amount": "999"
	}`
	var s State
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected zero-quantity line dropped, got %d lines", s.Len())
	}
	if _, ok := s.Find(SelectSlot("s1")); !ok {
		t.Error("expected slot identity restored")
	}
	if _, ok := s.Find(SelectProduct("A")); !ok {
		t.Error("expected product identity restored")
	}
	assertConsistent(t, s)
	if s.Totals().TotalItems != 5 {
		t.Errorf("expected 5 items, got %d", s.Totals().TotalItems)
	}
}

func TestExceedsStock(t *testing.T) {
	stock := 3
	limited := Product{ID: "A", Stock: &stock}
	unlimited := Product{ID: "B"}

	if limited.ExceedsStock(3) {
		t.Error("3 of 3 should not exceed stock")
	}
	if !limited.ExceedsStock(4) {
		t.Error("4 of 3 should exceed stock")
	}
	if unlimited.ExceedsStock(1_000_000) {
		t.Error("products without stock should never exceed it")
	}
}
