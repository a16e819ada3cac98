package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"giftshop-backend/cart"
	"giftshop-backend/middleware"
	"giftshop-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func orderBody(email string) map[string]interface{} {
	body := map[string]interface{}{
		"shipping_address": map[string]interface{}{
			"full_name":      "Aisha Buyer",
			"phone":          "+97455512345",
			"address_line_1": "West Bay Tower 3",
			"city":           "Doha",
		},
		"customer_notes": "Please add gift wrap",
	}
	if email != "" {
		body["customer_email"] = email
	}
	return body
}

// fillCart adds products to the cart behind session and returns the session.
func fillCart(t *testing.T, router *gin.Engine, session string, adds ...map[string]interface{}) string {
	t.Helper()
	if session == "" {
		session = uuid.NewString()
	}
	for _, add := range adds {
		path := "/api/cart/items"
		if add["duplicate"] == true {
			path = "/api/cart/duplicates"
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, sessionRequest("POST", path, map[string]interface{}{
			"product_id": add["product_id"], "quantity": add["quantity"],
		}, session))
		if w.Code != http.StatusOK {
			t.Fatalf("add to cart: expected status 200, got %d: %s", w.Code, w.Body.String())
		}
	}
	return session
}

func TestPlaceGuestOrder(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	publisher := &fakePublisher{}
	router := setupOrderRouter(db, registry, publisher, nil)
	cat := seedCategory(db, "Hampers", nil)
	hamper := seedProduct(db, "Ramadan Hamper", cat.ID, "150.00")
	card := seedProduct(db, "Greeting Card", cat.ID, "5.50")

	session := fillCart(t, router, "",
		map[string]interface{}{"product_id": hamper.ID.String(), "quantity": 2},
		map[string]interface{}{"product_id": hamper.ID.String(), "quantity": 1, "duplicate": true},
		map[string]interface{}{"product_id": card.ID.String(), "quantity": 3},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("Guest@Example.com"), session))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	orderNumber, _ := resp["order_number"].(string)
	if !strings.HasPrefix(orderNumber, "ORD") {
		t.Errorf("expected ORD order number, got %q", orderNumber)
	}

	var order models.Order
	if err := db.Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		t.Fatalf("order not stored: %v", err)
	}
	if !order.IsGuestOrder || order.UserID != nil {
		t.Error("expected a guest order without user")
	}
	if order.CustomerEmail != "guest@example.com" {
		t.Errorf("expected normalized email, got %s", order.CustomerEmail)
	}
	if !order.Total.Equal(decimal.RequireFromString("466.50")) {
		t.Errorf("expected total 466.50, got %s", order.Total)
	}
	if order.ShippingAddress.Country != "Qatar" {
		t.Errorf("expected default country Qatar, got %s", order.ShippingAddress.Country)
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 order items, got %d", len(order.Items))
	}
	var slotLines int
	for _, item := range order.Items {
		if item.SlotID != nil {
			slotLines++
		}
	}
	if slotLines != 1 {
		t.Errorf("expected 1 slot line, got %d", slotLines)
	}

	if !registry.Get(t.Context(), "guest:"+session).IsEmpty() {
		t.Error("expected cart to be cleared after checkout")
	}

	published := publisher.published()
	if len(published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(published))
	}
	if published[0].OrderNumber != orderNumber || !published[0].IsGuest || published[0].ItemCount != 6 {
		t.Errorf("unexpected event %+v", published[0])
	}
}

func TestPlaceOrderAsUser(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	router := setupOrderRouter(db, registry, &fakePublisher{}, nil)
	user, token := seedTestUser(db, "member@test.com", models.RoleCustomer)
	cat := seedCategory(db, "Tech", nil)
	prod := seedProduct(db, "USB Drive", cat.ID, "12.00")

	req := authRequest("POST", "/api/cart/items", map[string]interface{}{"product_id": prod.ID.String(), "quantity": 4}, token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// customer_email in the body is ignored for signed-in users.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/orders", orderBody("someone@else.com"), token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	order := parseResponse(w)["order"].(map[string]interface{})
	if order["customer_email"] != "member@test.com" {
		t.Errorf("expected account email, got %v", order["customer_email"])
	}
	if order["user_id"] != user.ID.String() {
		t.Errorf("expected user_id %s, got %v", user.ID, order["user_id"])
	}
	if order["is_guest_order"] != false {
		t.Error("expected a member order")
	}
	if !registry.Get(t.Context(), middleware.UserCartKey(user.ID)).IsEmpty() {
		t.Error("expected user cart to be cleared")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	orders := parseResponse(w)["orders"].([]interface{})
	if len(orders) != 1 {
		t.Errorf("expected 1 order in history, got %d", len(orders))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/"+order["id"].(string), nil, token))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for own order, got %d", w.Code)
	}
}

func TestGetOrderOfAnotherUser(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	owner, _ := seedTestUser(db, "owner@test.com", models.RoleCustomer)
	_, otherToken := seedTestUser(db, "other@test.com", models.RoleCustomer)
	order := seedOrder(db, &owner.ID, "owner@test.com", models.OrderStatusPending)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/"+order.ID.String(), nil, otherToken))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	cat := seedCategory(db, "Gifts", nil)
	prod := seedProduct(db, "Candle", cat.ID, "22.00")
	session := fillCart(t, router, "", map[string]interface{}{"product_id": prod.ID.String(), "quantity": 1})

	missingCity := orderBody("guest@test.com")
	delete(missingCity["shipping_address"].(map[string]interface{}), "city")
	badPayment := orderBody("guest@test.com")
	badPayment["payment_method"] = "crypto"
	negativeDiscount := orderBody("guest@test.com")
	negativeDiscount["discount_amount"] = "-5"

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"guest without email", orderBody("")},
		{"missing city", missingCity},
		{"unknown payment method", badPayment},
		{"negative discount", negativeDiscount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, sessionRequest("POST", "/api/orders", tt.body, session))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@test.com"), uuid.NewString()))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if parseResponse(w)["error"] != "Cart is empty" {
		t.Errorf("unexpected error %v", parseResponse(w)["error"])
	}
}

func TestPlaceOrderDiscountIsCapped(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	cat := seedCategory(db, "Gifts", nil)
	prod := seedProduct(db, "Keychain", cat.ID, "7.25")
	session := fillCart(t, router, "", map[string]interface{}{"product_id": prod.ID.String(), "quantity": 2})

	body := orderBody("guest@test.com")
	body["discount_amount"] = "100"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", body, session))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	order := parseResponse(w)["order"].(map[string]interface{})
	if order["discount_amount"] != "14.5" {
		t.Errorf("expected discount capped at 14.5, got %v", order["discount_amount"])
	}
	if order["total"] != "0" {
		t.Errorf("expected total 0, got %v", order["total"])
	}
}

func TestPlaceOrderWithUnavailableProduct(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	router := setupOrderRouter(db, registry, nil, nil)
	cat := seedCategory(db, "Gifts", nil)
	keep := seedProduct(db, "Pen Set", cat.ID, "30.00")
	retire := seedProduct(db, "Old Diary", cat.ID, "18.00")
	session := fillCart(t, router, "",
		map[string]interface{}{"product_id": keep.ID.String(), "quantity": 1},
		map[string]interface{}{"product_id": retire.ID.String(), "quantity": 1},
	)
	db.Model(&retire).Update("is_active", false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@test.com"), session))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	ids := parseResponse(w)["product_ids"].([]interface{})
	if len(ids) != 1 || ids[0] != retire.ID.String() {
		t.Errorf("expected %s to be reported, got %v", retire.ID, ids)
	}

	if registry.Get(t.Context(), "guest:"+session).Len() != 2 {
		t.Error("a rejected checkout must leave the cart untouched")
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no order, got %d", count)
	}
}

func TestPlaceOrderPublishFailureStillSucceeds(t *testing.T) {
	db := freshDB()
	publisher := &fakePublisher{err: errors.New("broker down")}
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), publisher, nil)
	cat := seedCategory(db, "Gifts", nil)
	prod := seedProduct(db, "Coaster", cat.ID, "4.00")
	session := fillCart(t, router, "", map[string]interface{}{"product_id": prod.ID.String(), "quantity": 1})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@test.com"), session))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTrackOrder(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	order := seedOrder(db, nil, "guest@test.com", models.OrderStatusShipped)

	tests := []struct {
		name     string
		body     map[string]string
		expected int
	}{
		{"match", map[string]string{"order_number": order.OrderNumber, "email": "GUEST@test.com"}, http.StatusOK},
		{"wrong email", map[string]string{"order_number": order.OrderNumber, "email": "other@test.com"}, http.StatusNotFound},
		{"missing number", map[string]string{"email": "guest@test.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest("POST", "/api/orders/track", tt.body))
			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d: %s", tt.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	db := freshDB()
	mailer := &fakeMailer{}
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, mailer)
	_, token := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	order := seedOrder(db, nil, "guest@test.com", models.OrderStatusPending)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/orders/"+order.ID.String()+"/status", map[string]string{"status": "confirmed"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["status"] != "confirmed" {
		t.Errorf("expected confirmed, got %v", parseResponse(w)["status"])
	}

	mails := mailer.waitFor(t, 1)
	if mails[0].To != "guest@test.com" || !strings.Contains(mails[0].Body, "confirmed") {
		t.Errorf("unexpected status mail %+v", mails[0])
	}
}

func TestUpdateOrderStatusInvalidTransitions(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	_, token := seedTestUser(db, "admin@test.com", models.RoleAdmin)

	tests := []struct {
		from models.OrderStatus
		to   string
	}{
		{models.OrderStatusPending, "shipped"},
		{models.OrderStatusDelivered, "cancelled"},
		{models.OrderStatusCancelled, "pending"},
		{models.OrderStatusPending, "lost"},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			order := seedOrder(db, nil, "guest@test.com", tt.from)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authRequest("PUT", "/api/admin/orders/"+order.ID.String()+"/status", map[string]string{"status": tt.to}, token))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/orders/"+uuid.NewString()+"/status", map[string]string{"status": "confirmed"}, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestGetOrderTransitions(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	_, token := seedTestUser(db, "admin@test.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/orders/transitions", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	pending := parseResponse(w)["pending"].([]interface{})
	if len(pending) != 2 {
		t.Errorf("expected 2 transitions from pending, got %v", pending)
	}
}

func TestAdminListOrders(t *testing.T) {
	db := freshDB()
	router := setupOrderRouter(db, cart.NewRegistry(zap.NewNop()), nil, nil)
	_, token := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	seedOrder(db, nil, "first@test.com", models.OrderStatusPending)
	seedOrder(db, nil, "second@test.com", models.OrderStatusShipped)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/orders?status=shipped", nil, token))
	if n := len(parseResponse(w)["orders"].([]interface{})); n != 1 {
		t.Errorf("expected 1 shipped order, got %d", n)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/orders?search=FIRST", nil, token))
	if n := len(parseResponse(w)["orders"].([]interface{})); n != 1 {
		t.Errorf("expected 1 order matching search, got %d", n)
	}
}

func TestAdminDashboard(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	router := setupOrderRouter(db, registry, nil, nil)
	_, token := seedTestUser(db, "admin@test.com", models.RoleAdmin)
	cat := seedCategory(db, "Gifts", nil)
	prod := seedProduct(db, "Frame", cat.ID, "20.00")
	seedOrder(db, nil, "a@test.com", models.OrderStatusPending)
	seedOrder(db, nil, "b@test.com", models.OrderStatusDelivered)
	seedOrder(db, nil, "c@test.com", models.OrderStatusCancelled)
	fillCart(t, router, "", map[string]interface{}{"product_id": prod.ID.String(), "quantity": 1})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/dashboard", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["total_orders"].(float64) != 3 || resp["pending_orders"].(float64) != 1 {
		t.Errorf("unexpected order counts: %v / %v", resp["total_orders"], resp["pending_orders"])
	}
	if resp["total_revenue"] != "100" {
		t.Errorf("expected revenue 100 without cancelled orders, got %v", resp["total_revenue"])
	}
	if resp["total_products"].(float64) != 1 {
		t.Errorf("expected 1 product, got %v", resp["total_products"])
	}
	if resp["active_carts"].(float64) < 1 {
		t.Errorf("expected at least 1 active cart, got %v", resp["active_carts"])
	}
}

// duringOrderInsert runs fn once, inside the insert of the next order.
func duringOrderInsert(t *testing.T, db *gorm.DB, fn func()) {
	t.Helper()
	const name = "test:during_order_insert"
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != "orders" || fired {
			return
		}
		fired = true
		fn()
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() {
		db.Callback().Create().Remove(name)
		if !fired {
			t.Error("callback never ran")
		}
	})
}

func TestCheckoutKeepsLinesAddedDuringOrderInsert(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	router := setupOrderRouter(db, registry, nil, nil)
	cat := seedCategory(db, "Hampers", nil)
	hamper := seedProduct(db, "Eid Hamper", cat.ID, "120.00")
	card := seedProduct(db, "Greeting Card", cat.ID, "5.00")

	session := fillCart(t, router, "",
		map[string]interface{}{"product_id": hamper.ID.String(), "quantity": 1},
	)
	key := "guest:" + session

	// The shopper adds cards in another tab, and tops up the hamper, while
	// the order is being written.
	duringOrderInsert(t, db, func() {
		registry.Update(t.Context(), key, func(s *cart.Store) cart.State {
			s.AddItem(cart.Product{ID: hamper.ID.String(), Name: hamper.Name, Price: hamper.Price}, 1)
			return s.AddItem(cart.Product{ID: card.ID.String(), Name: card.Name, Price: card.Price}, 2)
		})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@example.com"), session))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var order models.Order
	db.Preload("Items").Where("order_number = ?", parseResponse(w)["order_number"]).First(&order)
	if len(order.Items) != 1 || order.Items[0].Quantity != 1 {
		t.Fatalf("expected the order to hold the single hamper, got %+v", order.Items)
	}

	items := registry.Get(t.Context(), key).Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 lines left in the cart, got %d", len(items))
	}
	if items[0].Product.ID != hamper.ID.String() || items[0].Quantity != 1 {
		t.Errorf("expected the extra hamper to stay, got %+v", items[0])
	}
	if items[1].Product.ID != card.ID.String() || items[1].Quantity != 2 {
		t.Errorf("expected 2 greeting cards to stay, got %+v", items[1])
	}
}

func TestCheckoutRejectsSecondSubmit(t *testing.T) {
	db := freshDB()
	registry := cart.NewRegistry(zap.NewNop())
	router := setupOrderRouter(db, registry, nil, nil)
	cat := seedCategory(db, "Awards", nil)
	trophy := seedProduct(db, "Crystal Trophy", cat.ID, "200.00")
	session := fillCart(t, router, "",
		map[string]interface{}{"product_id": trophy.ID.String(), "quantity": 1},
	)

	// A double click lands while the first order is being written.
	var second *httptest.ResponseRecorder
	duringOrderInsert(t, db, func() {
		second = httptest.NewRecorder()
		router.ServeHTTP(second, sessionRequest("POST", "/api/orders", orderBody("guest@example.com"), session))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@example.com"), session))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if second == nil || second.Code != http.StatusConflict {
		t.Fatalf("expected the second submit to get 409, got %v", second)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, sessionRequest("POST", "/api/orders", orderBody("guest@example.com"), session))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for the emptied cart, got %d", w.Code)
	}

	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 order, got %d", count)
	}
}
