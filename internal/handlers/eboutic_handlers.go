package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/middleware"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// EbouticHandler exposes the online shop: baskets, the account payment
// path and the bank gateway callback.
type EbouticHandler struct {
	ebouticService services.EbouticService
}

// NewEbouticHandler creates a new EbouticHandler.
func NewEbouticHandler(es services.EbouticService) *EbouticHandler {
	return &EbouticHandler{ebouticService: es}
}

// CreateBasket validates and persists a basket for the authenticated
// member.
func (h *EbouticHandler) CreateBasket(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	var req struct {
		Lines []services.BasketLine `json:"lines" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateBasket")
		return
	}

	basket, err := h.ebouticService.BuildBasket(userID, req.Lines)
	if err != nil {
		respondServiceError(c, err, "CreateBasket: Error from ebouticService.BuildBasket")
		return
	}
	c.JSON(http.StatusCreated, basket)
}

// GetBasket returns one of the authenticated member's baskets.
func (h *EbouticHandler) GetBasket(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	basketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	basket, err := h.ebouticService.GetBasket(basketID, userID)
	if err != nil {
		respondServiceError(c, err, "GetBasket: Error from ebouticService.GetBasket")
		return
	}
	c.JSON(http.StatusOK, basket)
}

// GetPaymentData returns the signed payment message for the bank gateway
// redirect.
func (h *EbouticHandler) GetPaymentData(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	basketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.ebouticService.PaymentData(basketID, userID)
	if err != nil {
		respondServiceError(c, err, "GetPaymentData: Error from ebouticService.PaymentData")
		return
	}
	c.JSON(http.StatusOK, data)
}

// PayWithAccount settles the basket against the member's account.
func (h *EbouticHandler) PayWithAccount(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	basketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.ebouticService.PayWithSithAccount(basketID, userID)
	if err != nil {
		respondServiceError(c, err, "PayWithAccount: Error from ebouticService.PayWithSithAccount")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GatewayCallback receives the signed answer of the bank gateway. It is
// unauthenticated: trust comes from the signature only.
func (h *EbouticHandler) GatewayCallback(c *gin.Context) {
	if err := h.ebouticService.HandleCallback(c.Request.URL.RawQuery); err != nil {
		respondServiceError(c, err, "GatewayCallback: Error from ebouticService.HandleCallback")
		return
	}
	c.String(http.StatusOK, "Payment successful")
}
