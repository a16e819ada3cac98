package handlers

import (
	"net/http"

	"giftshop-backend/cart"
	"giftshop-backend/middleware"
	"giftshop-backend/models"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartHandler exposes the session cart. Carts live in the registry, not the
// database; the database is only read to snapshot products.
type CartHandler struct {
	DB       *gorm.DB
	Registry *cart.Registry
}

type addToCartRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  *int   `json:"quantity"`
}

// stockWarnings lists products whose combined quantity across all lines is
// above their stock. Stock is advisory and never blocks an operation.
func stockWarnings(state cart.State) []string {
	totals := map[string]int{}
	products := map[string]cart.Product{}
	var order []string
	for _, item := range state.Items() {
		id := item.Product.ID
		if _, seen := products[id]; !seen {
			order = append(order, id)
		}
		products[id] = item.Product
		totals[id] += item.Quantity
	}

	warnings := []string{}
	for _, id := range order {
		if products[id].ExceedsStock(totals[id]) {
			warnings = append(warnings, id)
		}
	}
	return warnings
}

func cartResponse(state cart.State) gin.H {
	warnings := stockWarnings(state)
	return gin.H{
		"cart":           state,
		"exceeds_stock":  len(warnings) > 0,
		"stock_warnings": warnings,
	}
}

func (h *CartHandler) sessionKey(c *gin.Context) (string, bool) {
	key := middleware.CartKey(c)
	if key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart session not resolved"})
		return "", false
	}
	return key, true
}

// loadProduct resolves an active product and snapshots it for the cart.
func (h *CartHandler) loadProduct(c *gin.Context, id string) (cart.Product, bool) {
	productID, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
		return cart.Product{}, false
	}

	var product models.Product
	if err := h.DB.Preload("Images").Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return cart.Product{}, false
	}
	return product.ToCartProduct(), true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse(h.Registry.Get(c.Request.Context(), key)))
}

func (h *CartHandler) GetTotals(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Registry.Get(c.Request.Context(), key).Totals())
}

// AddItem adds to the product's line, creating it when absent. A missing
// quantity means 1; a non-positive one leaves the cart as it was.
func (h *CartHandler) AddItem(c *gin.Context) {
	h.add(c, func(s *cart.Store, p cart.Product, q int) cart.State { return s.AddItem(p, q) })
}

// AddDuplicateItem always starts a new line for the product, so the same
// product can be configured differently on each line.
func (h *CartHandler) AddDuplicateItem(c *gin.Context) {
	h.add(c, func(s *cart.Store, p cart.Product, q int) cart.State { return s.AddDuplicateItem(p, q) })
}

func (h *CartHandler) add(c *gin.Context, op func(*cart.Store, cart.Product, int) cart.State) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, ok := h.loadProduct(c, req.ProductID)
	if !ok {
		return
	}

	state := h.Registry.Update(c.Request.Context(), key, func(s *cart.Store) cart.State {
		return op(s, product, quantity)
	})
	c.JSON(http.StatusOK, cartResponse(state))
}

// UpdateQuantity sets the quantity of the selected line; zero or less
// removes it.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
		SlotID    string `json:"slot_id"`
		Quantity  *int   `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	sel := cart.Selector{ProductID: req.ProductID, SlotID: cart.SlotID(req.SlotID)}
	if sel.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id or slot_id is required"})
		return
	}

	state := h.Registry.Update(c.Request.Context(), key, func(s *cart.Store) cart.State {
		return s.UpdateQuantity(sel, *req.Quantity)
	})
	c.JSON(http.StatusOK, cartResponse(state))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	sel := cart.Selector{ProductID: c.Query("product_id"), SlotID: cart.SlotID(c.Query("slot_id"))}
	if sel.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id or slot_id is required"})
		return
	}

	state := h.Registry.Update(c.Request.Context(), key, func(s *cart.Store) cart.State {
		return s.RemoveItem(sel)
	})
	c.JSON(http.StatusOK, cartResponse(state))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	state := h.Registry.Update(c.Request.Context(), key, func(s *cart.Store) cart.State {
		return s.Clear()
	})
	c.JSON(http.StatusOK, cartResponse(state))
}
