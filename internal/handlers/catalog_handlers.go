package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/services"
)

// CatalogHandler exposes product and product type management.
type CatalogHandler struct {
	catalogService services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: cs}
}

type productPayload struct {
	models.Product
	BuyingGroupIDs []int64 `json:"buying_group_ids"`
}

// CreateProduct handles the creation of a new product.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req productPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "CreateProduct")
		return
	}

	product, err := h.catalogService.CreateProduct(&req.Product, req.BuyingGroupIDs)
	if err != nil {
		respondServiceError(c, err, "CreateProduct: Error from catalogService.CreateProduct")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetProduct handles fetching a single product by ID.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(productID)
	if err != nil {
		respondServiceError(c, err, "GetProduct: Error from catalogService.GetProduct")
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdateProduct handles updating a product.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "UpdateProduct")
		return
	}
	req.Product.ID = productID

	if err := h.catalogService.UpdateProduct(&req.Product, req.BuyingGroupIDs); err != nil {
		respondServiceError(c, err, "UpdateProduct: Error from catalogService.UpdateProduct")
		return
	}
	c.JSON(http.StatusOK, req.Product)
}

// ArchiveProduct takes a product off sale everywhere without deleting its
// sales history.
func (h *CatalogHandler) ArchiveProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.ArchiveProduct(productID); err != nil {
		respondServiceError(c, err, "ArchiveProduct: Error from catalogService.ArchiveProduct")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product archived successfully"})
}

// GetProductTypes handles fetching all product types.
func (h *CatalogHandler) GetProductTypes(c *gin.Context) {
	types, err := h.catalogService.GetProductTypes()
	if err != nil {
		respondServiceError(c, err, "GetProductTypes: Error from catalogService.GetProductTypes")
		return
	}
	if types == nil {
		types = []models.ProductType{}
	}
	c.JSON(http.StatusOK, types)
}

// CreateProductType handles the creation of a new product type.
func (h *CatalogHandler) CreateProductType(c *gin.Context) {
	var pt models.ProductType
	if err := c.ShouldBindJSON(&pt); err != nil {
		bindError(c, err, "CreateProductType")
		return
	}
	created, err := h.catalogService.CreateProductType(&pt)
	if err != nil {
		respondServiceError(c, err, "CreateProductType: Error from catalogService.CreateProductType")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProductType handles updating a product type.
func (h *CatalogHandler) UpdateProductType(c *gin.Context) {
	typeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var pt models.ProductType
	if err := c.ShouldBindJSON(&pt); err != nil {
		bindError(c, err, "UpdateProductType")
		return
	}
	pt.ID = typeID

	if err := h.catalogService.UpdateProductType(&pt); err != nil {
		respondServiceError(c, err, "UpdateProductType: Error from catalogService.UpdateProductType")
		return
	}
	c.JSON(http.StatusOK, pt)
}

// DeleteProductType handles deleting a product type.
func (h *CatalogHandler) DeleteProductType(c *gin.Context) {
	typeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteProductType(typeID); err != nil {
		respondServiceError(c, err, "DeleteProductType: Error from catalogService.DeleteProductType")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product type deleted successfully"})
}
