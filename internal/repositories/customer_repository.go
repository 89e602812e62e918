package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// CustomerRepository defines the interface for customer-account database operations.
type CustomerRepository interface {
	GetByUserID(userID int64) (*models.Customer, error)
	GetByAccountID(accountID string) (*models.Customer, error)
	// GetForUpdate locks the customer row for the rest of the transaction.
	// This is the single hot lock of the POS engine.
	GetForUpdate(executor SQLExecutor, userID int64) (*models.Customer, error)
	Create(executor SQLExecutor, customer *models.Customer) error
	UpdateAmount(executor SQLExecutor, userID int64, amount decimal.Decimal) error
	// MaxAccountNumber returns the highest numeric part over all account ids,
	// 0 when no customer exists yet.
	MaxAccountNumber() (int64, error)
	// ListDormant returns customers with a positive balance and no ledger
	// activity since the given instant.
	ListDormant(inactiveSince time.Time) ([]models.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `user_id, account_id, amount, recorded_products, created_at, updated_at`

func scanCustomer(s scanner) (*models.Customer, error) {
	customer := &models.Customer{}
	err := s.Scan(
		&customer.UserID, &customer.AccountID, &customer.Amount,
		&customer.RecordedProducts, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
	}
	return customer, nil
}

func (r *customerRepository) GetByUserID(userID int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1`
	return scanCustomer(r.db.QueryRow(query, userID))
}

func (r *customerRepository) GetByAccountID(accountID string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE account_id = $1`
	return scanCustomer(r.db.QueryRow(query, accountID))
}

func (r *customerRepository) GetForUpdate(executor SQLExecutor, userID int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1 FOR UPDATE`
	return scanCustomer(executor.QueryRow(query, userID))
}

func (r *customerRepository) Create(executor SQLExecutor, customer *models.Customer) error {
	query := `INSERT INTO customers (user_id, account_id, amount, recorded_products, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now

	_, err := executor.Exec(query,
		customer.UserID, customer.AccountID, customer.Amount,
		customer.RecordedProducts, customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("%w: creating customer: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *customerRepository) UpdateAmount(executor SQLExecutor, userID int64, amount decimal.Decimal) error {
	query := `UPDATE customers SET amount = $1, updated_at = $2 WHERE user_id = $3`
	res, err := executor.Exec(query, amount, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("%w: updating amount for customer %d: %v", ErrDatabaseError, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepository) MaxAccountNumber() (int64, error) {
	// The trailing check letter is a single character, so the numeric part
	// is everything but the last rune.
	var max sql.NullInt64
	query := `SELECT MAX(CAST(LEFT(account_id, LENGTH(account_id) - 1) AS BIGINT)) FROM customers`
	if err := r.db.QueryRow(query).Scan(&max); err != nil {
		return 0, fmt.Errorf("%w: getting max account number: %v", ErrDatabaseError, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func (r *customerRepository) ListDormant(inactiveSince time.Time) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + `
	          FROM customers c
	          WHERE c.amount > 0
	            AND NOT EXISTS (
	              SELECT 1 FROM refillings r WHERE r.customer_id = c.user_id AND r.date >= $1
	            )
	            AND NOT EXISTS (
	              SELECT 1 FROM sellings s WHERE s.customer_id = c.user_id AND s.date >= $1
	            )
	          ORDER BY c.user_id`
	rows, err := r.db.Query(query, inactiveSince)
	if err != nil {
		return nil, fmt.Errorf("%w: listing dormant customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	return customers, rows.Err()
}
