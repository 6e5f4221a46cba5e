package handlers

import (
	"net/http"

	"storeops-api/pkg/models"
	"storeops-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// StoreHandler exposes the transactional store CRUD surface.
type StoreHandler struct {
	store *services.StoreService
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(store *services.StoreService) *StoreHandler {
	return &StoreHandler{store: store}
}

// --- Customers ---

// ListCustomers lists customers, optionally filtered with ?q=.
func (h *StoreHandler) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, customers)
}

// CreateCustomer creates a customer.
func (h *StoreHandler) CreateCustomer(c *gin.Context) {
	var in models.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	customer, err := h.store.CreateCustomer(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomer overwrites a customer record.
func (h *StoreHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	var in models.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	customer, err := h.store.UpdateCustomer(c.Request.Context(), id, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer.
func (h *StoreHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteCustomer(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": id})
}

// --- Products & inventory ---

// ListProducts lists the catalog, optionally filtered with ?q=.
func (h *StoreHandler) ListProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreateProduct creates or updates a product (upsert by SKU).
func (h *StoreHandler) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	product, err := h.store.UpsertProduct(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product with its inventory and order lines.
func (h *StoreHandler) DeleteProduct(c *gin.Context) {
	sku := c.Param("sku")
	if err := h.store.DeleteProduct(c.Request.Context(), sku); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": sku})
}

// ListInventory returns the full catalog with quantities.
func (h *StoreHandler) ListInventory(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}

// inventoryQtyInput is the body of a stock adjustment.
type inventoryQtyInput struct {
	Qty int `json:"qty"`
}

// SetInventoryStock pins the on-hand quantity for a SKU.
func (h *StoreHandler) SetInventoryStock(c *gin.Context) {
	sku := c.Param("sku")
	var in inventoryQtyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	product, err := h.store.SetInventoryQty(c.Request.Context(), sku, in.Qty)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListOutOfStock returns depleted or below-threshold products.
func (h *StoreHandler) ListOutOfStock(c *gin.Context) {
	items, err := h.store.ListOutOfStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

// --- Orders ---

// ListOrders lists the most recent orders (?limit=, default 25).
func (h *StoreHandler) ListOrders(c *gin.Context) {
	limit := queryIntDefault(c, "limit", 25)
	orders, err := h.store.ListOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns one order with its items.
func (h *StoreHandler) GetOrder(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	order, err := h.store.GetOrder(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder creates an order and decrements inventory.
func (h *StoreHandler) CreateOrder(c *gin.Context) {
	var in models.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	order, err := h.store.CreateOrder(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// orderStatusInput is the body of a status update.
type orderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus sets the status of an order.
func (h *StoreHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	var in orderStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	order, err := h.store.UpdateOrderStatus(c.Request.Context(), id, in.Status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder removes an order and its items.
func (h *StoreHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteOrder(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": id})
}

// GetOrderStatus returns the status point-lookup for one order.
func (h *StoreHandler) GetOrderStatus(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	status, err := h.store.GetOrderStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// --- Analytics ---

// SalesWeekOverWeek returns the trailing-week order comparison.
func (h *StoreHandler) SalesWeekOverWeek(c *gin.Context) {
	data, err := h.store.SalesWeekOverWeek(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}
