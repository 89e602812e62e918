package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// LedgerRepository defines the interface for refilling and selling
// database operations. Ledger rows are append-only in practice: deletion
// is permitted only while is_validated = false.
type LedgerRepository interface {
	CreateRefilling(executor SQLExecutor, refilling *models.Refilling) (int64, error)
	DeleteUnvalidatedRefilling(executor SQLExecutor, refillingID int64) error
	HasChequeBeenSeen(chequeNumber string, bank models.Bank) (bool, error)

	CreateSelling(executor SQLExecutor, selling *models.Selling) (int64, error)
	DeleteUnvalidatedSelling(executor SQLExecutor, sellingID int64) error
	SetSellingLinkedOperation(executor SQLExecutor, sellingID int64, operationID int64) error
	SetRefillingOperation(executor SQLExecutor, refillingID int64, operationID int64) error

	GetRefillingsByCustomer(customerID int64, limit int) ([]models.Refilling, error)
	GetSellingsByCustomer(customerID int64, limit int) ([]models.Selling, error)
	// SumsForCustomer returns (sum of refillings, sum of account-paid
	// sellings) for consistency checks against the customer balance.
	SumsForCustomer(customerID int64) (decimal.Decimal, decimal.Decimal, error)
	// LastActivity returns the most recent refilling or selling date of the
	// customer, or ErrNotFound when the ledger has no row for them.
	LastActivity(customerID int64) (time.Time, error)
}

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new instance of LedgerRepository.
func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateRefilling(executor SQLExecutor, refilling *models.Refilling) (int64, error) {
	query := `INSERT INTO refillings
	            (counter_id, operator_id, customer_id, amount, date, payment_method,
	             bank, cheque_number, is_validated, operation_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	if refilling.Date.IsZero() {
		refilling.Date = time.Now()
	}

	err := executor.QueryRow(query,
		refilling.CounterID, refilling.OperatorID, refilling.CustomerID,
		refilling.Amount, refilling.Date, refilling.PaymentMethod,
		refilling.Bank, refilling.ChequeNumber, refilling.IsValidated,
		refilling.OperationID,
	).Scan(&refilling.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating refilling: %v", ErrDatabaseError, err)
	}
	return refilling.ID, nil
}

func (r *ledgerRepository) DeleteUnvalidatedRefilling(executor SQLExecutor, refillingID int64) error {
	res, err := executor.Exec(
		`DELETE FROM refillings WHERE id = $1 AND is_validated = FALSE`, refillingID)
	if err != nil {
		return fmt.Errorf("%w: deleting refilling %d: %v", ErrDatabaseError, refillingID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ledgerRepository) HasChequeBeenSeen(chequeNumber string, bank models.Bank) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM refillings WHERE cheque_number = $1 AND bank = $2)`
	if err := r.db.QueryRow(query, chequeNumber, bank).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking cheque duplicate: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

func (r *ledgerRepository) CreateSelling(executor SQLExecutor, selling *models.Selling) (int64, error) {
	query := `INSERT INTO sellings
	            (label, product_id, counter_id, club_id, seller_id, customer_id,
	             unit_price, quantity, date, payment_method, is_validated, linked_operation_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`

	if selling.Date.IsZero() {
		selling.Date = time.Now()
	}

	err := executor.QueryRow(query,
		selling.Label, selling.ProductID, selling.CounterID, selling.ClubID,
		selling.SellerID, selling.CustomerID, selling.UnitPrice, selling.Quantity,
		selling.Date, selling.PaymentMethod, selling.IsValidated, selling.LinkedOperationID,
	).Scan(&selling.ID)

	if err != nil {
		return 0, fmt.Errorf("%w: creating selling: %v", ErrDatabaseError, err)
	}
	return selling.ID, nil
}

func (r *ledgerRepository) DeleteUnvalidatedSelling(executor SQLExecutor, sellingID int64) error {
	res, err := executor.Exec(
		`DELETE FROM sellings WHERE id = $1 AND is_validated = FALSE`, sellingID)
	if err != nil {
		return fmt.Errorf("%w: deleting selling %d: %v", ErrDatabaseError, sellingID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ledgerRepository) SetSellingLinkedOperation(executor SQLExecutor, sellingID int64, operationID int64) error {
	res, err := executor.Exec(
		`UPDATE sellings SET linked_operation_id = $1 WHERE id = $2`, operationID, sellingID)
	if err != nil {
		return fmt.Errorf("%w: linking selling %d to operation %d: %v", ErrDatabaseError, sellingID, operationID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ledgerRepository) SetRefillingOperation(executor SQLExecutor, refillingID int64, operationID int64) error {
	res, err := executor.Exec(
		`UPDATE refillings SET operation_id = $1 WHERE id = $2`, operationID, refillingID)
	if err != nil {
		return fmt.Errorf("%w: linking refilling %d to operation %d: %v", ErrDatabaseError, refillingID, operationID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ledgerRepository) GetRefillingsByCustomer(customerID int64, limit int) ([]models.Refilling, error) {
	query := `SELECT id, counter_id, operator_id, customer_id, amount, date,
	                 payment_method, bank, cheque_number, is_validated, operation_id
	          FROM refillings
	          WHERE customer_id = $1
	          ORDER BY date DESC, id DESC
	          LIMIT $2`
	rows, err := r.db.Query(query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: getting refillings for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	defer rows.Close()

	var refillings []models.Refilling
	for rows.Next() {
		var rf models.Refilling
		err := rows.Scan(
			&rf.ID, &rf.CounterID, &rf.OperatorID, &rf.CustomerID, &rf.Amount,
			&rf.Date, &rf.PaymentMethod, &rf.Bank, &rf.ChequeNumber,
			&rf.IsValidated, &rf.OperationID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning refilling: %v", ErrDatabaseError, err)
		}
		refillings = append(refillings, rf)
	}
	return refillings, rows.Err()
}

func (r *ledgerRepository) GetSellingsByCustomer(customerID int64, limit int) ([]models.Selling, error) {
	query := `SELECT id, label, product_id, counter_id, club_id, seller_id, customer_id,
	                 unit_price, quantity, date, payment_method, is_validated, linked_operation_id
	          FROM sellings
	          WHERE customer_id = $1
	          ORDER BY date DESC, id DESC
	          LIMIT $2`
	rows, err := r.db.Query(query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: getting sellings for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	defer rows.Close()

	var sellings []models.Selling
	for rows.Next() {
		var s models.Selling
		err := rows.Scan(
			&s.ID, &s.Label, &s.ProductID, &s.CounterID, &s.ClubID, &s.SellerID,
			&s.CustomerID, &s.UnitPrice, &s.Quantity, &s.Date, &s.PaymentMethod,
			&s.IsValidated, &s.LinkedOperationID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning selling: %v", ErrDatabaseError, err)
		}
		sellings = append(sellings, s)
	}
	return sellings, rows.Err()
}

func (r *ledgerRepository) SumsForCustomer(customerID int64) (decimal.Decimal, decimal.Decimal, error) {
	var refilled, sold decimal.Decimal
	query := `SELECT
	            COALESCE((SELECT SUM(amount) FROM refillings WHERE customer_id = $1), 0),
	            COALESCE((SELECT SUM(unit_price * quantity) FROM sellings
	                      WHERE customer_id = $1 AND payment_method = 'SITH_ACCOUNT'), 0)`
	if err := r.db.QueryRow(query, customerID).Scan(&refilled, &sold); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: summing ledger for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	return refilled, sold, nil
}

func (r *ledgerRepository) LastActivity(customerID int64) (time.Time, error) {
	var last sql.NullTime
	query := `SELECT GREATEST(
	            (SELECT MAX(date) FROM refillings WHERE customer_id = $1),
	            (SELECT MAX(date) FROM sellings WHERE customer_id = $1))`
	if err := r.db.QueryRow(query, customerID).Scan(&last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("%w: getting last activity for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	if !last.Valid {
		return time.Time{}, ErrNotFound
	}
	return last.Time, nil
}
