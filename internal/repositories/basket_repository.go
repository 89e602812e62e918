package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// BasketRepository defines the interface for persisted e-shop baskets.
type BasketRepository interface {
	Create(executor SQLExecutor, basket *models.Basket) (int64, error)
	GetByID(basketID int64) (*models.Basket, error)
	// GetForUpdate locks the basket row so that concurrent bank callbacks
	// for the same basket serialise.
	GetForUpdate(executor SQLExecutor, basketID int64) (*models.Basket, error)
	// MarkConsumed flips the consumed flag. It returns
	// ErrNotFound when the basket was already consumed, which is the
	// idempotency barrier of the callback path.
	MarkConsumed(executor SQLExecutor, basketID int64) error
	Delete(executor SQLExecutor, basketID int64) error
	DeleteExpired(before time.Time) (int64, error)
}

type basketRepository struct {
	db *sql.DB
}

// NewBasketRepository creates a new instance of BasketRepository.
func NewBasketRepository(db *sql.DB) BasketRepository {
	return &basketRepository{db: db}
}

func (r *basketRepository) Create(executor SQLExecutor, basket *models.Basket) (int64, error) {
	query := `INSERT INTO baskets (user_id, merchant_ref, date, consumed)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	if basket.Date.IsZero() {
		basket.Date = time.Now()
	}

	err := executor.QueryRow(query,
		basket.UserID, basket.MerchantRef, basket.Date, basket.Consumed,
	).Scan(&basket.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating basket: %v", ErrDatabaseError, err)
	}

	for i := range basket.Items {
		item := &basket.Items[i]
		item.BasketID = basket.ID
		err := executor.QueryRow(
			`INSERT INTO basket_items (basket_id, product_id, product_name, product_type_id, product_unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			item.BasketID, item.ProductID, item.ProductName, item.ProductTypeID,
			item.ProductUnitPrice, item.Quantity,
		).Scan(&item.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: creating basket item: %v", ErrDatabaseError, err)
		}
	}
	return basket.ID, nil
}

func (r *basketRepository) scanBasket(s scanner) (*models.Basket, error) {
	basket := &models.Basket{}
	err := s.Scan(&basket.ID, &basket.UserID, &basket.MerchantRef, &basket.Date, &basket.Consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning basket: %v", ErrDatabaseError, err)
	}
	return basket, nil
}

func (r *basketRepository) loadItems(executor SQLExecutor, basket *models.Basket) error {
	rows, err := executor.Query(
		`SELECT id, basket_id, product_id, product_name, product_type_id, product_unit_price, quantity
		 FROM basket_items WHERE basket_id = $1 ORDER BY id`, basket.ID)
	if err != nil {
		return fmt.Errorf("%w: getting items for basket %d: %v", ErrDatabaseError, basket.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.BasketItem
		err := rows.Scan(
			&item.ID, &item.BasketID, &item.ProductID, &item.ProductName,
			&item.ProductTypeID, &item.ProductUnitPrice, &item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("%w: scanning basket item: %v", ErrDatabaseError, err)
		}
		basket.Items = append(basket.Items, item)
	}
	return rows.Err()
}

func (r *basketRepository) GetByID(basketID int64) (*models.Basket, error) {
	basket, err := r.scanBasket(r.db.QueryRow(
		`SELECT id, user_id, merchant_ref, date, consumed FROM baskets WHERE id = $1`, basketID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(r.db, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

func (r *basketRepository) GetForUpdate(executor SQLExecutor, basketID int64) (*models.Basket, error) {
	basket, err := r.scanBasket(executor.QueryRow(
		`SELECT id, user_id, merchant_ref, date, consumed FROM baskets WHERE id = $1 FOR UPDATE`, basketID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(executor, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

func (r *basketRepository) MarkConsumed(executor SQLExecutor, basketID int64) error {
	res, err := executor.Exec(
		`UPDATE baskets SET consumed = TRUE WHERE id = $1 AND consumed = FALSE`, basketID)
	if err != nil {
		return fmt.Errorf("%w: consuming basket %d: %v", ErrDatabaseError, basketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *basketRepository) Delete(executor SQLExecutor, basketID int64) error {
	// basket_items are removed by the ON DELETE CASCADE constraint
	res, err := executor.Exec(`DELETE FROM baskets WHERE id = $1`, basketID)
	if err != nil {
		return fmt.Errorf("%w: deleting basket %d: %v", ErrDatabaseError, basketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *basketRepository) DeleteExpired(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM baskets WHERE consumed = FALSE AND date < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting expired baskets: %v", ErrDatabaseError, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
