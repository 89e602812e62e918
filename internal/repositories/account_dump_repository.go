package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// AccountDumpRepository defines the interface for account-dump rows.
// The partial unique index on (customer_id) WHERE dump_operation_id IS NULL
// prevents two concurrent dump processes for the same customer.
type AccountDumpRepository interface {
	Create(executor SQLExecutor, dump *models.AccountDump) (int64, error)
	GetOngoingByCustomer(customerID int64) (*models.AccountDump, error)
	// ListOngoingWarnedBefore returns ongoing dumps whose warning mail was
	// sent before the threshold, i.e. whose grace period has elapsed.
	ListOngoingWarnedBefore(threshold time.Time) ([]models.AccountDump, error)
	SetDumpOperation(executor SQLExecutor, dumpID int64, sellingID int64) error
	SetWarningMailError(executor SQLExecutor, dumpID int64) error
	DeleteOngoing(executor SQLExecutor, customerID int64) error
}

type accountDumpRepository struct {
	db *sql.DB
}

// NewAccountDumpRepository creates a new instance of AccountDumpRepository.
func NewAccountDumpRepository(db *sql.DB) AccountDumpRepository {
	return &accountDumpRepository{db: db}
}

const accountDumpColumns = `id, customer_id, warning_mail_sent_at, warning_mail_error, dump_operation_id`

func scanAccountDump(s scanner) (*models.AccountDump, error) {
	dump := &models.AccountDump{}
	err := s.Scan(
		&dump.ID, &dump.CustomerID, &dump.WarningMailSentAt,
		&dump.WarningMailError, &dump.DumpOperationID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning account dump: %v", ErrDatabaseError, err)
	}
	return dump, nil
}

func (r *accountDumpRepository) Create(executor SQLExecutor, dump *models.AccountDump) (int64, error) {
	query := `INSERT INTO account_dumps (customer_id, warning_mail_sent_at, warning_mail_error, dump_operation_id)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := executor.QueryRow(query,
		dump.CustomerID, dump.WarningMailSentAt, dump.WarningMailError, dump.DumpOperationID,
	).Scan(&dump.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating account dump: %v", ErrDatabaseError, err)
	}
	return dump.ID, nil
}

func (r *accountDumpRepository) GetOngoingByCustomer(customerID int64) (*models.AccountDump, error) {
	query := `SELECT ` + accountDumpColumns + `
	          FROM account_dumps
	          WHERE customer_id = $1 AND dump_operation_id IS NULL`
	return scanAccountDump(r.db.QueryRow(query, customerID))
}

func (r *accountDumpRepository) ListOngoingWarnedBefore(threshold time.Time) ([]models.AccountDump, error) {
	query := `SELECT ` + accountDumpColumns + `
	          FROM account_dumps
	          WHERE dump_operation_id IS NULL AND warning_mail_sent_at < $1
	          ORDER BY customer_id`
	rows, err := r.db.Query(query, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: listing ongoing dumps: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var dumps []models.AccountDump
	for rows.Next() {
		dump, err := scanAccountDump(rows)
		if err != nil {
			return nil, err
		}
		dumps = append(dumps, *dump)
	}
	return dumps, rows.Err()
}

func (r *accountDumpRepository) SetDumpOperation(executor SQLExecutor, dumpID int64, sellingID int64) error {
	res, err := executor.Exec(
		`UPDATE account_dumps SET dump_operation_id = $1 WHERE id = $2 AND dump_operation_id IS NULL`,
		sellingID, dumpID)
	if err != nil {
		return fmt.Errorf("%w: setting dump operation for dump %d: %v", ErrDatabaseError, dumpID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountDumpRepository) SetWarningMailError(executor SQLExecutor, dumpID int64) error {
	res, err := executor.Exec(
		`UPDATE account_dumps SET warning_mail_error = TRUE WHERE id = $1`, dumpID)
	if err != nil {
		return fmt.Errorf("%w: flagging warning mail error for dump %d: %v", ErrDatabaseError, dumpID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountDumpRepository) DeleteOngoing(executor SQLExecutor, customerID int64) error {
	_, err := executor.Exec(
		`DELETE FROM account_dumps WHERE customer_id = $1 AND dump_operation_id IS NULL`, customerID)
	if err != nil {
		return fmt.Errorf("%w: deleting ongoing dump for customer %d: %v", ErrDatabaseError, customerID, err)
	}
	return nil
}
