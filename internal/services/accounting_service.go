package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

// AccountingService mirrors counter ledger rows into club general journals
// and manages the journals themselves. The bridge never rewrites history:
// a closed journal accepts no new operations.
type AccountingService interface {
	CreateJournal(clubID int64, name string, startDate time.Time) (*models.GeneralJournal, error)
	CloseJournal(journalID int64, endDate time.Time) error
	GetJournal(journalID int64) (*models.GeneralJournal, error)
	GetJournalOperations(journalID int64) ([]models.Operation, error)

	// RecordOperation appends a single operation to a journal, numbering it
	// contiguously. Fails with ErrAccountingClosed on a closed journal.
	RecordOperation(journalID int64, op *models.Operation) (*models.Operation, error)
	// RecordOperationPair appends a linked debit-credit pair. Both rows are
	// inserted with a null link, then updated to point at each other.
	RecordOperationPair(journalID int64, debit, credit *models.Operation) error

	// MirrorSelling mirrors a validated selling into the owning club's open
	// journal, inside the caller's transaction. A club without an open
	// journal is simply skipped.
	MirrorSelling(executor repositories.SQLExecutor, selling *models.Selling) error
	// MirrorRefilling does the same for a refilling, as a debit of the
	// customer-deposits account.
	MirrorRefilling(executor repositories.SQLExecutor, refilling *models.Refilling, clubID int64, customerLabel string) error
}

type accountingService struct {
	accountingRepo repositories.AccountingRepository
	ledgerRepo     repositories.LedgerRepository
	db             repositories.Store
}

// NewAccountingService creates a new instance of AccountingService.
func NewAccountingService(
	ar repositories.AccountingRepository,
	lr repositories.LedgerRepository,
	db repositories.Store,
) AccountingService {
	return &accountingService{accountingRepo: ar, ledgerRepo: lr, db: db}
}

func (s *accountingService) CreateJournal(clubID int64, name string, startDate time.Time) (*models.GeneralJournal, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: journal name is required", ErrValidation)
	}
	journal := &models.GeneralJournal{
		ClubID:    clubID,
		Name:      name,
		StartDate: startDate,
	}
	if _, err := s.accountingRepo.CreateJournal(s.db, journal); err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	return journal, nil
}

func (s *accountingService) CloseJournal(journalID int64, endDate time.Time) error {
	journal, err := s.accountingRepo.GetJournalByID(journalID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: journal %d", ErrValidation, journalID)
		}
		return fmt.Errorf("loading journal %d: %w", journalID, err)
	}
	if endDate.Before(journal.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	if err := s.accountingRepo.CloseJournal(s.db, journalID, endDate); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountingClosed
		}
		return fmt.Errorf("closing journal %d: %w", journalID, err)
	}
	return nil
}

func (s *accountingService) GetJournal(journalID int64) (*models.GeneralJournal, error) {
	journal, err := s.accountingRepo.GetJournalByID(journalID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: journal %d", ErrValidation, journalID)
		}
		return nil, err
	}
	return journal, nil
}

func (s *accountingService) GetJournalOperations(journalID int64) ([]models.Operation, error) {
	return s.accountingRepo.GetOperationsByJournal(journalID)
}

func (s *accountingService) RecordOperation(journalID int64, op *models.Operation) (*models.Operation, error) {
	err := s.db.InTx(func(tx repositories.SQLExecutor) error {
		return s.appendOperation(tx, journalID, op)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *accountingService) RecordOperationPair(journalID int64, debit, credit *models.Operation) error {
	if debit.IsCredit || !credit.IsCredit {
		return fmt.Errorf("%w: pair must be one debit and one credit", ErrValidation)
	}

	return s.db.InTx(func(tx repositories.SQLExecutor) error {
		if err := s.appendOperation(tx, journalID, debit); err != nil {
			return err
		}
		if err := s.appendOperation(tx, journalID, credit); err != nil {
			return err
		}
		if err := s.accountingRepo.LinkOperations(tx, debit.ID, credit.ID); err != nil {
			return fmt.Errorf("linking operation pair: %w", err)
		}
		return nil
	})
}

// appendOperation numbers and inserts an operation, then refreshes the
// journal rollups. The caller must hold a transaction; the journal row is
// locked here so concurrent appends cannot race for the same number.
func (s *accountingService) appendOperation(tx repositories.SQLExecutor, journalID int64, op *models.Operation) error {
	journal, err := s.accountingRepo.GetJournalForUpdate(tx, journalID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: journal %d", ErrValidation, journalID)
		}
		return fmt.Errorf("loading journal %d: %w", journalID, err)
	}
	if journal.Closed {
		return ErrAccountingClosed
	}
	if op.TargetType == models.OperationTargetOther && op.TargetLabel == "" {
		return fmt.Errorf("%w: a label is required for operations with no target", ErrValidation)
	}
	if op.TargetType != models.OperationTargetOther && op.TargetID == nil {
		return fmt.Errorf("%w: a target is required", ErrValidation)
	}

	op.JournalID = journalID
	op.Number, err = s.accountingRepo.NextOperationNumber(tx, journalID)
	if err != nil {
		return fmt.Errorf("numbering operation: %w", err)
	}
	if _, err := s.accountingRepo.CreateOperation(tx, op); err != nil {
		return fmt.Errorf("creating operation: %w", err)
	}
	if err := s.accountingRepo.UpdateJournalAmounts(tx, journalID); err != nil {
		return fmt.Errorf("updating journal amounts: %w", err)
	}
	return nil
}

func (s *accountingService) MirrorSelling(executor repositories.SQLExecutor, selling *models.Selling) error {
	journal, err := s.accountingRepo.GetOpenJournalForClub(executor, selling.ClubID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// the club does not keep a journal open, nothing to mirror
			return nil
		}
		return fmt.Errorf("loading open journal for club %d: %w", selling.ClubID, err)
	}

	number, err := s.accountingRepo.NextOperationNumber(executor, journal.ID)
	if err != nil {
		return fmt.Errorf("numbering mirror operation: %w", err)
	}
	op := &models.Operation{
		JournalID:   journal.ID,
		Number:      number,
		Date:        selling.Date,
		Amount:      selling.Total(),
		Remark:      fmt.Sprintf("%d x %s", selling.Quantity, selling.Label),
		Mode:        models.OperationModeCard,
		IsCredit:    true,
		Done:        true,
		TargetType:  models.OperationTargetClub,
		TargetID:    &selling.ClubID,
		TargetLabel: "",
	}
	if selling.PaymentMethod == models.PaymentMethodSithAccount {
		op.Mode = models.OperationModeTransfer
	}
	if _, err := s.accountingRepo.CreateOperation(executor, op); err != nil {
		return fmt.Errorf("creating mirror operation: %w", err)
	}
	if err := s.ledgerRepo.SetSellingLinkedOperation(executor, selling.ID, op.ID); err != nil {
		return fmt.Errorf("linking selling to operation: %w", err)
	}
	selling.LinkedOperationID = &op.ID
	if err := s.accountingRepo.UpdateJournalAmounts(executor, journal.ID); err != nil {
		return fmt.Errorf("updating journal amounts: %w", err)
	}
	return nil
}

func (s *accountingService) MirrorRefilling(executor repositories.SQLExecutor, refilling *models.Refilling, clubID int64, customerLabel string) error {
	journal, err := s.accountingRepo.GetOpenJournalForClub(executor, clubID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading open journal for club %d: %w", clubID, err)
	}

	number, err := s.accountingRepo.NextOperationNumber(executor, journal.ID)
	if err != nil {
		return fmt.Errorf("numbering mirror operation: %w", err)
	}
	mode := models.OperationModeCash
	switch refilling.PaymentMethod {
	case models.PaymentMethodCheck:
		mode = models.OperationModeCheque
	case models.PaymentMethodCard, models.PaymentMethodEboutic:
		mode = models.OperationModeCard
	}
	op := &models.Operation{
		JournalID:    journal.ID,
		Number:       number,
		Date:         refilling.Date,
		Amount:       refilling.Amount,
		Remark:       fmt.Sprintf("Refilling %s", customerLabel),
		Mode:         mode,
		ChequeNumber: refilling.ChequeNumber,
		IsCredit:     true,
		Done:         true,
		TargetType:   models.OperationTargetUser,
		TargetID:     &refilling.CustomerID,
		TargetLabel:  customerLabel,
	}
	if _, err := s.accountingRepo.CreateOperation(executor, op); err != nil {
		return fmt.Errorf("creating mirror operation: %w", err)
	}
	if err := s.ledgerRepo.SetRefillingOperation(executor, refilling.ID, op.ID); err != nil {
		return fmt.Errorf("linking refilling to operation: %w", err)
	}
	refilling.OperationID = &op.ID
	if err := s.accountingRepo.UpdateJournalAmounts(executor, journal.ID); err != nil {
		return fmt.Errorf("updating journal amounts: %w", err)
	}
	return nil
}
