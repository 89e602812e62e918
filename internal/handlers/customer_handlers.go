package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/middleware"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// CustomerHandler exposes customer account queries.
type CustomerHandler struct {
	customerService services.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(cs services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: cs}
}

// OpenAccount opens (or returns) the authenticated member's account.
func (h *CustomerHandler) OpenAccount(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	customer, err := h.customerService.OpenAccount(userID)
	if err != nil {
		respondServiceError(c, err, "OpenAccount: Error from customerService.OpenAccount")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetMyAccount returns the authenticated member's account.
func (h *CustomerHandler) GetMyAccount(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	customer, err := h.customerService.GetCustomer(userID)
	if err != nil {
		respondServiceError(c, err, "GetMyAccount: Error from customerService.GetCustomer")
		return
	}
	canBuy, err := h.customerService.CanBuy(userID, time.Now())
	if err != nil {
		respondServiceError(c, err, "GetMyAccount: Error from customerService.CanBuy")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"can_buy":  canBuy,
	})
}

// GetMyStatement returns the authenticated member's account history.
func (h *CustomerHandler) GetMyStatement(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required.", ""))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	statement, err := h.customerService.Statement(userID, limit)
	if err != nil {
		respondServiceError(c, err, "GetMyStatement: Error from customerService.Statement")
		return
	}
	if statement == nil {
		statement = []services.StatementEntry{}
	}
	c.JSON(http.StatusOK, statement)
}

// GetCustomer returns any customer account. For sellers at a counter.
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	customer, err := h.customerService.GetCustomer(userID)
	if err != nil {
		respondServiceError(c, err, "GetCustomer: Error from customerService.GetCustomer")
		return
	}
	c.JSON(http.StatusOK, customer)
}
