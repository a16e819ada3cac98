package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"giftshop-backend/cart"
	"giftshop-backend/events"
	"giftshop-backend/middleware"
	"giftshop-backend/models"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderHandler struct {
	DB        *gorm.DB
	Registry  *cart.Registry
	Publisher events.Publisher
	Mailer    utils.Mailer
	Logger    *zap.Logger
}

type shippingAddressRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email" binding:"omitempty,email"`
	AddressLine1 string `json:"address_line_1" binding:"required"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city" binding:"required"`
	Country      string `json:"country"`
}

type placeOrderRequest struct {
	CustomerEmail   string                 `json:"customer_email" binding:"omitempty,email"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" binding:"omitempty,oneof=cash_on_delivery bank_transfer"`
	ShippingMethod  string                 `json:"shipping_method" binding:"omitempty,oneof=standard express pickup"`
	CustomerNotes   string                 `json:"customer_notes"`
	DiscountAmount  *decimal.Decimal       `json:"discount_amount"`
}

const defaultCountry = "Qatar"

var (
	errEmptyCart        = errors.New("cart is empty")
	errItemsUnavailable = errors.New("cart items unavailable")
)

// orderItems converts checkout lines into order items. It fails when a line
// points at a product that no longer exists or was deactivated.
func (h *OrderHandler) orderItems(lines []cart.CheckoutLine) ([]models.OrderItem, []string, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	var unavailable []string
	for _, line := range lines {
		id, err := uuid.Parse(line.ProductID)
		if err != nil {
			unavailable = append(unavailable, line.ProductID)
			continue
		}
		ids = append(ids, id)
	}

	var active []uuid.UUID
	if err := h.DB.Model(&models.Product{}).Where("id IN ? AND is_active = ?", ids, true).Pluck("id", &active).Error; err != nil {
		return nil, nil, err
	}
	available := make(map[uuid.UUID]bool, len(active))
	for _, id := range active {
		available[id] = true
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		id, err := uuid.Parse(line.ProductID)
		if err != nil {
			continue
		}
		if !available[id] {
			unavailable = append(unavailable, line.ProductID)
			continue
		}
		item := models.OrderItem{
			ProductID:   id,
			ProductName: line.Name,
			ProductSKU:  line.SKU,
			ImageURL:    line.ImageURL,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		}
		if line.SlotID != "" {
			slot := string(line.SlotID)
			item.SlotID = &slot
		}
		items = append(items, item)
	}
	return items, unavailable, nil
}

// PlaceOrder turns the session cart into an order. The ordered lines leave
// the cart once the order is committed.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	key := middleware.CartKey(c)
	if key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart session not resolved"})
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.DiscountAmount != nil && req.DiscountAmount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount_amount cannot be negative"})
		return
	}

	order := models.Order{
		ID: uuid.New(),
		ShippingAddress: models.ShippingAddress{
			FullName:     strings.TrimSpace(req.ShippingAddress.FullName),
			Phone:        req.ShippingAddress.Phone,
			Email:        req.ShippingAddress.Email,
			AddressLine1: req.ShippingAddress.AddressLine1,
			AddressLine2: req.ShippingAddress.AddressLine2,
			City:         req.ShippingAddress.City,
			Country:      req.ShippingAddress.Country,
		},
		Status:         models.OrderStatusPending,
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: req.ShippingMethod,
		CustomerNotes:  req.CustomerNotes,
	}
	if order.ShippingAddress.Country == "" {
		order.ShippingAddress.Country = defaultCountry
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.PaymentCashOnDelivery
	}
	if order.ShippingMethod == "" {
		order.ShippingMethod = models.ShippingStandard
	}

	if userID, ok := currentUserID(c); ok {
		var user models.User
		if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		order.UserID = &user.ID
		order.CustomerEmail = user.Email
	} else {
		if req.CustomerEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customer_email is required for guest orders"})
			return
		}
		order.CustomerEmail = normalizeEmail(req.CustomerEmail)
		order.IsGuestOrder = true
	}

	// Lines added while the order is written stay in the cart.
	var unavailable []string
	state, err := h.Registry.Checkout(c.Request.Context(), key, func(state cart.State) error {
		if state.IsEmpty() {
			return errEmptyCart
		}
		items, missing, err := h.orderItems(state.CheckoutLines())
		if err != nil {
			return fmt.Errorf("failed to check products: %w", err)
		}
		if len(missing) > 0 {
			unavailable = missing
			return errItemsUnavailable
		}

		order.Items = items
		order.Subtotal = state.Totals().TotalAmount
		order.DiscountAmount = decimal.Zero
		if req.DiscountAmount != nil {
			order.DiscountAmount = decimal.Min(*req.DiscountAmount, order.Subtotal)
		}
		order.Total = order.Subtotal.Sub(order.DiscountAmount)

		if err := h.DB.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, cart.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Your order is already being placed"})
		return
	case errors.Is(err, errEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	case errors.Is(err, errItemsUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Some items in your cart are no longer available",
			"product_ids": unavailable,
		})
		return
	case err != nil:
		h.Logger.Error("checkout failed", zap.String("session", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	h.publishPlaced(c, order, state.Totals().TotalItems)

	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"order_number": order.OrderNumber,
		"order":        order,
	})
}

// publishPlaced announces the order. The order is already committed, so a
// failed publish is logged and not reported to the customer.
func (h *OrderHandler) publishPlaced(c *gin.Context, order models.Order, itemCount int) {
	if h.Publisher == nil {
		return
	}
	evt := events.OrderPlaced{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.ShippingAddress.FullName,
		IsGuest:       order.IsGuestOrder,
		ItemCount:     itemCount,
		Total:         order.Total,
		PlacedAt:      order.CreatedAt,
	}
	if err := h.Publisher.PublishOrderPlaced(c.Request.Context(), evt); err != nil {
		h.Logger.Warn("failed to publish order event", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := paginationParams(c, 20)
	query := h.DB.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	var orders []models.Order
	if err := query.Preload("Items").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": newPagination(page, limit, total, "total_orders")})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var order models.Order
	if err := h.DB.Preload("Items").Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// TrackOrder lets guests look up an order by number and email.
func (h *OrderHandler) TrackOrder(c *gin.Context) {
	var req struct {
		OrderNumber string `json:"order_number" binding:"required"`
		Email       string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Preload("Items").
		Where("order_number = ? AND customer_email = ?", strings.TrimSpace(req.OrderNumber), normalizeEmail(req.Email)).
		First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ==================== Admin ====================

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, limit := paginationParams(c, 20)
	query := h.DB.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	var orders []models.Order
	if err := query.Preload("Items").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": newPagination(page, limit, total, "total_orders")})
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ?", c.Param("id")).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if !models.IsValidTransition(order.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid status transition from '%s' to '%s'", order.Status, req.Status),
		})
		return
	}

	if err := h.DB.Model(&order).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}

	h.Logger.Info("order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(order.Status)),
		zap.String("to", string(req.Status)))

	subject, body := utils.OrderStatusEmail(order.ShippingAddress.FullName, order.OrderNumber, string(req.Status))
	utils.SendAsync(h.Mailer, h.Logger, order.CustomerEmail, subject, body)

	h.DB.Preload("Items").First(&order, "id = ?", order.ID)
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllowedTransitions)
}

// GetAdminDashboard returns headline numbers for the admin panel. Revenue
// leaves out cancelled orders.
func (h *OrderHandler) GetAdminDashboard(c *gin.Context) {
	var productCount, categoryCount, totalOrders, pendingOrders int64
	h.DB.Model(&models.Product{}).Count(&productCount)
	h.DB.Model(&models.Category{}).Count(&categoryCount)
	h.DB.Model(&models.Order{}).Count(&totalOrders)
	h.DB.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending).Count(&pendingOrders)

	var totalRevenue, recentRevenue decimal.Decimal
	h.DB.Model(&models.Order{}).Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").Row().Scan(&totalRevenue)
	h.DB.Model(&models.Order{}).Where("status <> ? AND created_at >= ?", models.OrderStatusCancelled, time.Now().AddDate(0, 0, -7)).
		Select("COALESCE(SUM(total), 0)").Row().Scan(&recentRevenue)

	var recentOrders []models.Order
	h.DB.Preload("Items").Order("created_at DESC").Limit(10).Find(&recentOrders)

	c.JSON(http.StatusOK, gin.H{
		"total_products":   productCount,
		"total_categories": categoryCount,
		"total_orders":     totalOrders,
		"pending_orders":   pendingOrders,
		"total_revenue":    totalRevenue,
		"recent_revenue":   recentRevenue,
		"recent_orders":    recentOrders,
		"active_carts":     h.Registry.Sessions(),
	})
}
