package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/handlers"
)

// SetupPublicRoutes registers the routes reachable without a JWT: member
// login, the counter-token login and the signed bank gateway callback.
func SetupPublicRoutes(
	apiGroup *gin.RouterGroup,
	authHandler *handlers.AuthHandler,
	counterHandler *handlers.CounterHandler,
	ebouticHandler *handlers.EbouticHandler,
) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh-token", authHandler.Refresh)
	}

	apiGroup.POST("/counters/login", counterHandler.CounterLogin)
	apiGroup.GET("/eboutic/callback", ebouticHandler.GatewayCallback)
}

// SetupCatalogRoutes sets up the product and product type routes.
func SetupCatalogRoutes(authenticatedGroup *gin.RouterGroup, catalogHandler *handlers.CatalogHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	{
		productRoutes.POST("", catalogHandler.CreateProduct)
		productRoutes.GET("/:id", catalogHandler.GetProduct)
		productRoutes.PUT("/:id", catalogHandler.UpdateProduct)
		productRoutes.PATCH("/:id/archive", catalogHandler.ArchiveProduct)
	}

	productTypeRoutes := authenticatedGroup.Group("/product-types")
	{
		productTypeRoutes.GET("", catalogHandler.GetProductTypes)
		productTypeRoutes.POST("", catalogHandler.CreateProductType)
		productTypeRoutes.PUT("/:id", catalogHandler.UpdateProductType)
		productTypeRoutes.DELETE("/:id", catalogHandler.DeleteProductType)
	}
}

// SetupCounterRoutes sets up counter administration, permanencies and the
// point-of-sale routes.
func SetupCounterRoutes(authenticatedGroup *gin.RouterGroup, counterHandler *handlers.CounterHandler) {
	counterRoutes := authenticatedGroup.Group("/counters")
	{
		counterRoutes.GET("", counterHandler.GetCounters)
		counterRoutes.POST("", counterHandler.CreateCounter)
		counterRoutes.GET("/:id", counterHandler.GetCounter)
		counterRoutes.PUT("/:id", counterHandler.UpdateCounter)
		counterRoutes.POST("/:id/token", counterHandler.RotateToken)
		counterRoutes.PUT("/:id/products", counterHandler.SetProducts)
		counterRoutes.PUT("/:id/sellers", counterHandler.SetSellers)

		counterRoutes.GET("/:id/barmen", counterHandler.GetBarmen)
		counterRoutes.POST("/:id/permanency", counterHandler.OpenPermanency)
		counterRoutes.DELETE("/:id/permanency", counterHandler.ClosePermanency)

		counterRoutes.GET("/:id/products-for", counterHandler.GetProductsFor)
		counterRoutes.POST("/:id/sell", counterHandler.Sell)
		counterRoutes.POST("/:id/refill", counterHandler.Refill)
	}
}

// SetupCustomerRoutes sets up the customer account routes.
func SetupCustomerRoutes(authenticatedGroup *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := authenticatedGroup.Group("/customers")
	{
		customerRoutes.POST("/me", customerHandler.OpenAccount)
		customerRoutes.GET("/me", customerHandler.GetMyAccount)
		customerRoutes.GET("/me/statement", customerHandler.GetMyStatement)
		customerRoutes.GET("/:id", customerHandler.GetCustomer)
	}
}

// SetupEbouticRoutes sets up the authenticated e-shop routes. The gateway
// callback is public and registered in SetupPublicRoutes.
func SetupEbouticRoutes(authenticatedGroup *gin.RouterGroup, ebouticHandler *handlers.EbouticHandler) {
	ebouticRoutes := authenticatedGroup.Group("/eboutic/baskets")
	{
		ebouticRoutes.POST("", ebouticHandler.CreateBasket)
		ebouticRoutes.GET("/:id", ebouticHandler.GetBasket)
		ebouticRoutes.GET("/:id/payment-data", ebouticHandler.GetPaymentData)
		ebouticRoutes.POST("/:id/pay-with-account", ebouticHandler.PayWithAccount)
	}
}

// SetupAccountingRoutes sets up the club accounting routes.
func SetupAccountingRoutes(authenticatedGroup *gin.RouterGroup, accountingHandler *handlers.AccountingHandler) {
	journalRoutes := authenticatedGroup.Group("/accounting/journals")
	{
		journalRoutes.POST("", accountingHandler.CreateJournal)
		journalRoutes.GET("/:id", accountingHandler.GetJournal)
		journalRoutes.PATCH("/:id/close", accountingHandler.CloseJournal)
		journalRoutes.GET("/:id/operations", accountingHandler.GetJournalOperations)
		journalRoutes.POST("/:id/operations", accountingHandler.RecordOperation)
		journalRoutes.POST("/:id/operation-pairs", accountingHandler.RecordOperationPair)
	}
}
