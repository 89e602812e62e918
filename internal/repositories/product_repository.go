package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// ProductRepository defines the interface for product and product-type
// database operations.
type ProductRepository interface {
	GetProductByID(productID int64) (*models.Product, error)
	// GetProductsByIDs returns the products with their buying groups loaded,
	// keyed by id. Unknown ids are simply absent from the result.
	GetProductsByIDs(productIDs []int64) (map[int64]*models.Product, error)
	GetProductsForCounter(counterID int64) ([]models.Product, error)
	CreateProduct(executor SQLExecutor, product *models.Product) (int64, error)
	UpdateProduct(executor SQLExecutor, product *models.Product) error
	ArchiveProduct(executor SQLExecutor, productID int64) error
	SetBuyingGroups(executor SQLExecutor, productID int64, groupIDs []int64) error

	GetProductTypes() ([]models.ProductType, error)
	CreateProductType(executor SQLExecutor, pt *models.ProductType) (int64, error)
	UpdateProductType(executor SQLExecutor, pt *models.ProductType) error
	DeleteProductType(executor SQLExecutor, productTypeID int64) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, code, name, description, product_type_id, parent_product_id, club_id,
	                    purchase_price, selling_price, special_selling_price, vat_rate, icon,
	                    limit_age, tray, archived, created_at, updated_at`

func scanProduct(s scanner) (*models.Product, error) {
	product := &models.Product{}
	err := s.Scan(
		&product.ID, &product.Code, &product.Name, &product.Description,
		&product.ProductTypeID, &product.ParentProductID, &product.ClubID,
		&product.PurchasePrice, &product.SellingPrice, &product.SpecialSellingPrice,
		&product.VATRate, &product.Icon, &product.LimitAge, &product.Tray,
		&product.Archived, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
	}
	return product, nil
}

func (r *productRepository) GetProductByID(productID int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRow(query, productID))
	if err != nil {
		return nil, err
	}
	groups, err := r.buyingGroups([]int64{productID})
	if err != nil {
		return nil, err
	}
	product.BuyingGroupIDs = groups[productID]
	return product, nil
}

func (r *productRepository) GetProductsByIDs(productIDs []int64) (map[int64]*models.Product, error) {
	if len(productIDs) == 0 {
		return map[int64]*models.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.db.Query(query, int64Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: getting products by ids: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(productIDs))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating products: %v", ErrDatabaseError, err)
	}

	groups, err := r.buyingGroups(productIDs)
	if err != nil {
		return nil, err
	}
	for id, product := range products {
		product.BuyingGroupIDs = groups[id]
	}
	return products, nil
}

func (r *productRepository) GetProductsForCounter(counterID int64) ([]models.Product, error) {
	query := `SELECT ` + prefixedProductColumns("p") + `
	          FROM products p
	          JOIN counter_products cp ON cp.product_id = p.id
	          WHERE cp.counter_id = $1 AND p.archived = FALSE
	          ORDER BY p.name`
	rows, err := r.db.Query(query, counterID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting products for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	defer rows.Close()

	var products []models.Product
	var ids []int64
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
		ids = append(ids, product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating counter products: %v", ErrDatabaseError, err)
	}

	groups, err := r.buyingGroups(ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].BuyingGroupIDs = groups[products[i].ID]
	}
	return products, nil
}

func (r *productRepository) buyingGroups(productIDs []int64) (map[int64][]int64, error) {
	if len(productIDs) == 0 {
		return map[int64][]int64{}, nil
	}
	query := `SELECT product_id, group_id FROM product_buying_groups WHERE product_id = ANY($1)`
	rows, err := r.db.Query(query, int64Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: getting buying groups: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	groups := make(map[int64][]int64)
	for rows.Next() {
		var productID, groupID int64
		if err := rows.Scan(&productID, &groupID); err != nil {
			return nil, fmt.Errorf("%w: scanning buying group: %v", ErrDatabaseError, err)
		}
		groups[productID] = append(groups[productID], groupID)
	}
	return groups, rows.Err()
}

func (r *productRepository) CreateProduct(executor SQLExecutor, product *models.Product) (int64, error) {
	query := `INSERT INTO products
	            (code, name, description, product_type_id, parent_product_id, club_id,
	             purchase_price, selling_price, special_selling_price, vat_rate, icon,
	             limit_age, tray, archived, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id`

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := executor.QueryRow(query,
		product.Code, product.Name, product.Description, product.ProductTypeID,
		product.ParentProductID, product.ClubID, product.PurchasePrice,
		product.SellingPrice, product.SpecialSellingPrice, product.VATRate,
		product.Icon, product.LimitAge, product.Tray, product.Archived,
		product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating product: %v", ErrDatabaseError, err)
	}
	return product.ID, nil
}

func (r *productRepository) UpdateProduct(executor SQLExecutor, product *models.Product) error {
	query := `UPDATE products SET
	            code = $1, name = $2, description = $3, product_type_id = $4,
	            parent_product_id = $5, club_id = $6, purchase_price = $7,
	            selling_price = $8, special_selling_price = $9, vat_rate = $10,
	            icon = $11, limit_age = $12, tray = $13, archived = $14, updated_at = $15
	          WHERE id = $16`
	res, err := executor.Exec(query,
		product.Code, product.Name, product.Description, product.ProductTypeID,
		product.ParentProductID, product.ClubID, product.PurchasePrice,
		product.SellingPrice, product.SpecialSellingPrice, product.VATRate,
		product.Icon, product.LimitAge, product.Tray, product.Archived,
		time.Now(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating product %d: %v", ErrDatabaseError, product.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) ArchiveProduct(executor SQLExecutor, productID int64) error {
	res, err := executor.Exec(`UPDATE products SET archived = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), productID)
	if err != nil {
		return fmt.Errorf("%w: archiving product %d: %v", ErrDatabaseError, productID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) SetBuyingGroups(executor SQLExecutor, productID int64, groupIDs []int64) error {
	if _, err := executor.Exec(`DELETE FROM product_buying_groups WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("%w: clearing buying groups for product %d: %v", ErrDatabaseError, productID, err)
	}
	for _, groupID := range groupIDs {
		_, err := executor.Exec(
			`INSERT INTO product_buying_groups (product_id, group_id) VALUES ($1, $2)`,
			productID, groupID,
		)
		if err != nil {
			return fmt.Errorf("%w: adding buying group %d to product %d: %v", ErrDatabaseError, groupID, productID, err)
		}
	}
	return nil
}

func (r *productRepository) GetProductTypes() ([]models.ProductType, error) {
	query := `SELECT id, name, description, comment, icon, display_order
	          FROM product_types ORDER BY display_order, id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting product types: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var types []models.ProductType
	for rows.Next() {
		var pt models.ProductType
		err := rows.Scan(&pt.ID, &pt.Name, &pt.Description, &pt.Comment, &pt.Icon, &pt.DisplayOrder)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning product type: %v", ErrDatabaseError, err)
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}

func (r *productRepository) CreateProductType(executor SQLExecutor, pt *models.ProductType) (int64, error) {
	query := `INSERT INTO product_types (name, description, comment, icon, display_order)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := executor.QueryRow(query, pt.Name, pt.Description, pt.Comment, pt.Icon, pt.DisplayOrder).Scan(&pt.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating product type: %v", ErrDatabaseError, err)
	}
	return pt.ID, nil
}

func (r *productRepository) UpdateProductType(executor SQLExecutor, pt *models.ProductType) error {
	query := `UPDATE product_types SET name = $1, description = $2, comment = $3, icon = $4, display_order = $5
	          WHERE id = $6`
	res, err := executor.Exec(query, pt.Name, pt.Description, pt.Comment, pt.Icon, pt.DisplayOrder, pt.ID)
	if err != nil {
		return fmt.Errorf("%w: updating product type %d: %v", ErrDatabaseError, pt.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) DeleteProductType(executor SQLExecutor, productTypeID int64) error {
	res, err := executor.Exec(`DELETE FROM product_types WHERE id = $1`, productTypeID)
	if err != nil {
		return fmt.Errorf("%w: deleting product type %d: %v", ErrDatabaseError, productTypeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
