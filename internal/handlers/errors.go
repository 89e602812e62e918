package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/internal/services"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// respondServiceError maps a service error to the standard JSON error
// envelope. The action string names the failed handler for the log line.
func respondServiceError(c *gin.Context, err error, action string) {
	utils.LogError(err, action)

	var notSellable *services.NotSellableError
	switch {
	case errors.As(err, &notSellable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"Product cannot be sold: "+notSellable.ProductName+".", err.Error()))
	case errors.Is(err, services.ErrNotAuthenticated):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
			"Authentication failed.", err.Error()))
	case errors.Is(err, services.ErrNotAuthorized):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
			"You are not allowed to perform this action.", err.Error()))
	case errors.Is(err, services.ErrPermanencyClosed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
			"No open permanency on this counter.", err.Error()))
	case errors.Is(err, services.ErrPermanencyAlreadyOpen):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"A permanency is already open for this seller.", err.Error()))
	case errors.Is(err, services.ErrInsufficientFunds):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"Insufficient funds on the customer account.", err.Error()))
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound,
			"Customer account not found.", err.Error()))
	case errors.Is(err, services.ErrBasketExpired):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusGone, "BASKET_EXPIRED",
			"The basket has expired.", err.Error()))
	case errors.Is(err, services.ErrBasketAlreadyConsumed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"The basket has already been paid.", err.Error()))
	case errors.Is(err, services.ErrInvalidBasket):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid basket.", err.Error()))
	case errors.Is(err, services.ErrInvalidSignature):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, "INVALID_SIGNATURE",
			"Invalid gateway signature.", err.Error()))
	case errors.Is(err, services.ErrPaymentRefused):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, "PAYMENT_REFUSED",
			"The bank refused the payment.", err.Error()))
	case errors.Is(err, services.ErrAccountingClosed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"The accounting journal is closed.", err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Validation failed: "+err.Error(), err.Error()))
	case errors.Is(err, repositories.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound,
			"Resource not found.", err.Error()))
	case errors.Is(err, repositories.ErrDuplicateKey):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict,
			"Resource already exists.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
			"Internal server error.", "Internal error"))
	}
}

func bindError(c *gin.Context, err error, action string) {
	utils.LogError(err, action+": Failed to bind JSON")
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
		"Invalid request payload: "+err.Error(), err.Error()))
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := parseID(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid "+name+" format.", err.Error()))
		return 0, false
	}
	return id, true
}
