package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/middleware"
	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// CounterHandler exposes counter administration, permanencies and the
// point-of-sale operations.
type CounterHandler struct {
	counterService    services.CounterService
	permanencyService services.PermanencyService
	checkoutService   services.CheckoutService
	catalogService    services.CatalogService
}

// NewCounterHandler creates a new CounterHandler.
func NewCounterHandler(
	counterService services.CounterService,
	permanencyService services.PermanencyService,
	checkoutService services.CheckoutService,
	catalogService services.CatalogService,
) *CounterHandler {
	return &CounterHandler{
		counterService:    counterService,
		permanencyService: permanencyService,
		checkoutService:   checkoutService,
		catalogService:    catalogService,
	}
}

// GetCounters handles fetching all counters.
func (h *CounterHandler) GetCounters(c *gin.Context) {
	counters, err := h.counterService.GetCounters()
	if err != nil {
		respondServiceError(c, err, "GetCounters: Error from counterService.GetCounters")
		return
	}
	if counters == nil {
		counters = []models.Counter{}
	}
	c.JSON(http.StatusOK, counters)
}

// GetCounter handles fetching a single counter by ID.
func (h *CounterHandler) GetCounter(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	counter, err := h.counterService.GetCounter(counterID)
	if err != nil {
		respondServiceError(c, err, "GetCounter: Error from counterService.GetCounter")
		return
	}
	c.JSON(http.StatusOK, counter)
}

// CreateCounter handles the creation of a new counter.
func (h *CounterHandler) CreateCounter(c *gin.Context) {
	var counter models.Counter
	if err := c.ShouldBindJSON(&counter); err != nil {
		bindError(c, err, "CreateCounter")
		return
	}
	created, err := h.counterService.CreateCounter(&counter)
	if err != nil {
		respondServiceError(c, err, "CreateCounter: Error from counterService.CreateCounter")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateCounter handles updating a counter.
func (h *CounterHandler) UpdateCounter(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var counter models.Counter
	if err := c.ShouldBindJSON(&counter); err != nil {
		bindError(c, err, "UpdateCounter")
		return
	}
	counter.ID = counterID

	if err := h.counterService.UpdateCounter(&counter); err != nil {
		respondServiceError(c, err, "UpdateCounter: Error from counterService.UpdateCounter")
		return
	}
	c.JSON(http.StatusOK, counter)
}

// RotateToken issues a fresh login token for a physical counter.
func (h *CounterHandler) RotateToken(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	token, err := h.counterService.RotateToken(counterID)
	if err != nil {
		respondServiceError(c, err, "RotateToken: Error from counterService.RotateToken")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// SetProducts replaces the product list of a counter.
func (h *CounterHandler) SetProducts(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ProductIDs []int64 `json:"product_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "SetProducts")
		return
	}
	if err := h.counterService.SetProducts(counterID, req.ProductIDs); err != nil {
		respondServiceError(c, err, "SetProducts: Error from counterService.SetProducts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Counter products updated successfully"})
}

// SetSellers replaces the seller list of a counter.
func (h *CounterHandler) SetSellers(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		SellerIDs []int64 `json:"seller_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "SetSellers")
		return
	}
	if err := h.counterService.SetSellers(counterID, req.SellerIDs); err != nil {
		respondServiceError(c, err, "SetSellers: Error from counterService.SetSellers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Counter sellers updated successfully"})
}

// CounterLogin opens a permanency from a physical counter, authenticating
// the barman by counter token plus credentials.
func (h *CounterHandler) CounterLogin(c *gin.Context) {
	var payload models.CounterLoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		bindError(c, err, "CounterLogin")
		return
	}
	permanency, err := h.permanencyService.CounterLogin(payload.CounterToken, payload.Username, payload.Password)
	if err != nil {
		respondServiceError(c, err, "CounterLogin: Error from permanencyService.CounterLogin")
		return
	}
	c.JSON(http.StatusCreated, permanency)
}

// OpenPermanency starts a shift for the authenticated seller.
func (h *CounterHandler) OpenPermanency(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	permanency, err := h.permanencyService.Open(counterID, sellerID)
	if err != nil {
		respondServiceError(c, err, "OpenPermanency: Error from permanencyService.Open")
		return
	}
	c.JSON(http.StatusCreated, permanency)
}

// ClosePermanency ends the authenticated seller's shift on the counter.
func (h *CounterHandler) ClosePermanency(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	if err := h.permanencyService.Close(counterID, sellerID, time.Now()); err != nil {
		respondServiceError(c, err, "ClosePermanency: Error from permanencyService.Close")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Permanency closed successfully"})
}

// GetBarmen lists the sellers currently on shift at a counter.
func (h *CounterHandler) GetBarmen(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	barmen, err := h.permanencyService.Barmen(counterID)
	if err != nil {
		respondServiceError(c, err, "GetBarmen: Error from permanencyService.Barmen")
		return
	}
	if barmen == nil {
		barmen = []models.Permanency{}
	}
	c.JSON(http.StatusOK, barmen)
}

// GetProductsFor lists the products a given customer may buy at the
// counter, with resolved prices.
func (h *CounterHandler) GetProductsFor(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	customerID, err := parseID(c.Query("customer_id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid customer_id format.", err.Error()))
		return
	}
	products, err := h.catalogService.ProductsFor(counterID, customerID)
	if err != nil {
		respondServiceError(c, err, "GetProductsFor: Error from catalogService.ProductsFor")
		return
	}
	if products == nil {
		products = []services.PricedProduct{}
	}
	c.JSON(http.StatusOK, products)
}

// Sell runs a bar or office checkout.
func (h *CounterHandler) Sell(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sellerID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	var req struct {
		CustomerID int64                 `json:"customer_id" binding:"required"`
		Lines      []services.BasketLine `json:"lines" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Sell")
		return
	}

	result, err := h.checkoutService.PerformSale(services.SaleRequest{
		CounterID:  counterID,
		SellerID:   sellerID,
		CustomerID: req.CustomerID,
		Lines:      req.Lines,
	})
	if err != nil {
		respondServiceError(c, err, "Sell: Error from checkoutService.PerformSale")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Refill credits a customer account at a bar counter.
func (h *CounterHandler) Refill(c *gin.Context) {
	counterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	operatorID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	var req services.RefillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Refill")
		return
	}
	req.CounterID = counterID
	req.OperatorID = operatorID

	refilling, err := h.checkoutService.Refill(req)
	if err != nil {
		respondServiceError(c, err, "Refill: Error from checkoutService.Refill")
		return
	}
	c.JSON(http.StatusCreated, refilling)
}
