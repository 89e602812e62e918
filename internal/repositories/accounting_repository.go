package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// AccountingRepository defines the interface for general journals and
// double-entry operations.
type AccountingRepository interface {
	CreateJournal(executor SQLExecutor, journal *models.GeneralJournal) (int64, error)
	GetJournalByID(journalID int64) (*models.GeneralJournal, error)
	// GetJournalForUpdate locks the journal row for the rest of the
	// transaction so that operation numbering stays contiguous under
	// concurrency.
	GetJournalForUpdate(executor SQLExecutor, journalID int64) (*models.GeneralJournal, error)
	// GetOpenJournalForClub returns the club's journal without an end date,
	// locked for the rest of the transaction so that operation numbering
	// stays contiguous under concurrency.
	GetOpenJournalForClub(executor SQLExecutor, clubID int64) (*models.GeneralJournal, error)
	CloseJournal(executor SQLExecutor, journalID int64, endDate time.Time) error

	// NextOperationNumber returns count+1 for the journal. Callers must hold
	// the journal lock taken by GetJournalForUpdate or GetOpenJournalForClub.
	NextOperationNumber(executor SQLExecutor, journalID int64) (int, error)
	CreateOperation(executor SQLExecutor, operation *models.Operation) (int64, error)
	// LinkOperations sets the two halves of a debit-credit pair on each
	// other. Both rows must already exist; the link field is filled by
	// UPDATE to avoid an insertion cycle.
	LinkOperations(executor SQLExecutor, firstID, secondID int64) error
	UpdateJournalAmounts(executor SQLExecutor, journalID int64) error
	GetOperationsByJournal(journalID int64) ([]models.Operation, error)
}

type accountingRepository struct {
	db *sql.DB
}

// NewAccountingRepository creates a new instance of AccountingRepository.
func NewAccountingRepository(db *sql.DB) AccountingRepository {
	return &accountingRepository{db: db}
}

const journalColumns = `id, club_id, name, start_date, end_date, closed, amount, effective_amount`

func scanJournal(s scanner) (*models.GeneralJournal, error) {
	j := &models.GeneralJournal{}
	err := s.Scan(
		&j.ID, &j.ClubID, &j.Name, &j.StartDate, &j.EndDate,
		&j.Closed, &j.Amount, &j.EffectiveAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning journal: %v", ErrDatabaseError, err)
	}
	return j, nil
}

func (r *accountingRepository) CreateJournal(executor SQLExecutor, journal *models.GeneralJournal) (int64, error) {
	query := `INSERT INTO general_journals (club_id, name, start_date, end_date, closed, amount, effective_amount)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := executor.QueryRow(query,
		journal.ClubID, journal.Name, journal.StartDate, journal.EndDate,
		journal.Closed, journal.Amount, journal.EffectiveAmount,
	).Scan(&journal.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating journal: %v", ErrDatabaseError, err)
	}
	return journal.ID, nil
}

func (r *accountingRepository) GetJournalByID(journalID int64) (*models.GeneralJournal, error) {
	query := `SELECT ` + journalColumns + ` FROM general_journals WHERE id = $1`
	return scanJournal(r.db.QueryRow(query, journalID))
}

func (r *accountingRepository) GetJournalForUpdate(executor SQLExecutor, journalID int64) (*models.GeneralJournal, error) {
	query := `SELECT ` + journalColumns + ` FROM general_journals WHERE id = $1 FOR UPDATE`
	return scanJournal(executor.QueryRow(query, journalID))
}

func (r *accountingRepository) GetOpenJournalForClub(executor SQLExecutor, clubID int64) (*models.GeneralJournal, error) {
	query := `SELECT ` + journalColumns + `
	          FROM general_journals
	          WHERE club_id = $1 AND closed = FALSE AND end_date IS NULL
	          ORDER BY start_date DESC
	          LIMIT 1
	          FOR UPDATE`
	return scanJournal(executor.QueryRow(query, clubID))
}

func (r *accountingRepository) CloseJournal(executor SQLExecutor, journalID int64, endDate time.Time) error {
	res, err := executor.Exec(
		`UPDATE general_journals SET closed = TRUE, end_date = $1 WHERE id = $2 AND closed = FALSE`,
		endDate, journalID)
	if err != nil {
		return fmt.Errorf("%w: closing journal %d: %v", ErrDatabaseError, journalID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountingRepository) NextOperationNumber(executor SQLExecutor, journalID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM operations WHERE journal_id = $1`
	if err := executor.QueryRow(query, journalID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting operations for journal %d: %v", ErrDatabaseError, journalID, err)
	}
	return count + 1, nil
}

func (r *accountingRepository) CreateOperation(executor SQLExecutor, operation *models.Operation) (int64, error) {
	query := `INSERT INTO operations
	            (journal_id, number, date, amount, remark, mode, cheque_number,
	             is_credit, done, target_type, target_id, target_label, linked_operation_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING id`

	if operation.Date.IsZero() {
		operation.Date = time.Now()
	}

	err := executor.QueryRow(query,
		operation.JournalID, operation.Number, operation.Date, operation.Amount,
		operation.Remark, operation.Mode, operation.ChequeNumber, operation.IsCredit,
		operation.Done, operation.TargetType, operation.TargetID, operation.TargetLabel,
		operation.LinkedOperationID,
	).Scan(&operation.ID)

	if err != nil {
		if IsUniqueViolation(err) {
			// (number, journal_id) collision
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating operation: %v", ErrDatabaseError, err)
	}
	return operation.ID, nil
}

func (r *accountingRepository) LinkOperations(executor SQLExecutor, firstID, secondID int64) error {
	if _, err := executor.Exec(
		`UPDATE operations SET linked_operation_id = $1 WHERE id = $2`, secondID, firstID); err != nil {
		return fmt.Errorf("%w: linking operation %d to %d: %v", ErrDatabaseError, firstID, secondID, err)
	}
	if _, err := executor.Exec(
		`UPDATE operations SET linked_operation_id = $1 WHERE id = $2`, firstID, secondID); err != nil {
		return fmt.Errorf("%w: linking operation %d to %d: %v", ErrDatabaseError, secondID, firstID, err)
	}
	return nil
}

func (r *accountingRepository) UpdateJournalAmounts(executor SQLExecutor, journalID int64) error {
	query := `UPDATE general_journals SET
	            amount = COALESCE((SELECT SUM(amount) FROM operations
	                               WHERE journal_id = $1 AND is_credit = TRUE), 0),
	            effective_amount = COALESCE((SELECT SUM(CASE WHEN is_credit THEN amount ELSE -amount END)
	                                         FROM operations
	                                         WHERE journal_id = $1 AND done = TRUE), 0)
	          WHERE id = $1`
	if _, err := executor.Exec(query, journalID); err != nil {
		return fmt.Errorf("%w: updating amounts for journal %d: %v", ErrDatabaseError, journalID, err)
	}
	return nil
}

func (r *accountingRepository) GetOperationsByJournal(journalID int64) ([]models.Operation, error) {
	query := `SELECT id, journal_id, number, date, amount, remark, mode, cheque_number,
	                 is_credit, done, target_type, target_id, target_label, linked_operation_id
	          FROM operations
	          WHERE journal_id = $1
	          ORDER BY number DESC`
	rows, err := r.db.Query(query, journalID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting operations for journal %d: %v", ErrDatabaseError, journalID, err)
	}
	defer rows.Close()

	var operations []models.Operation
	for rows.Next() {
		var op models.Operation
		err := rows.Scan(
			&op.ID, &op.JournalID, &op.Number, &op.Date, &op.Amount, &op.Remark,
			&op.Mode, &op.ChequeNumber, &op.IsCredit, &op.Done, &op.TargetType,
			&op.TargetID, &op.TargetLabel, &op.LinkedOperationID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning operation: %v", ErrDatabaseError, err)
		}
		operations = append(operations, op)
	}
	return operations, rows.Err()
}
