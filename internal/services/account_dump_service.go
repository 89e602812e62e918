package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// dumpSellingLabel is the label of the product-less selling that empties a
// dormant account.
const dumpSellingLabel = "Vidange compte inactif"

// Mailer sends the dormant-account notifications. A nil-safe no-op
// implementation is used when mailing is not configured.
type Mailer interface {
	SendDumpWarning(user *models.User, balance decimal.Decimal, dumpDate time.Time) error
	SendDumpNotice(user *models.User, amount decimal.Decimal) error
}

// AccountDumpService drains dormant customer accounts in two passes: a
// warning pass that notifies the owner, then, after the grace period, a
// drain pass that empties the account through a product-less selling.
type AccountDumpService interface {
	// WarningPass opens a dump for every dormant account that has none yet
	// and sends the warning mail. Returns the number of dumps opened.
	WarningPass(now time.Time) (int, error)
	// DumpPass drains every account whose grace period has elapsed.
	// Customers who spent or refilled since the warning are dropped from
	// the process instead. Returns the number of accounts drained.
	DumpPass(now time.Time) (int, error)
}

type accountDumpService struct {
	dumpRepo      repositories.AccountDumpRepository
	customerRepo  repositories.CustomerRepository
	ledgerRepo    repositories.LedgerRepository
	userRepo      repositories.UserRepository
	counterRepo   repositories.CounterRepository
	mailer        Mailer
	idle          time.Duration
	grace         time.Duration
	dumpCounterID int64
	db            repositories.Store
}

// NewAccountDumpService creates a new instance of AccountDumpService.
func NewAccountDumpService(
	dumpRepo repositories.AccountDumpRepository,
	customerRepo repositories.CustomerRepository,
	ledgerRepo repositories.LedgerRepository,
	userRepo repositories.UserRepository,
	counterRepo repositories.CounterRepository,
	mailer Mailer,
	idle time.Duration,
	grace time.Duration,
	dumpCounterID int64,
	db repositories.Store,
) AccountDumpService {
	return &accountDumpService{
		dumpRepo:      dumpRepo,
		customerRepo:  customerRepo,
		ledgerRepo:    ledgerRepo,
		userRepo:      userRepo,
		counterRepo:   counterRepo,
		mailer:        mailer,
		idle:          idle,
		grace:         grace,
		dumpCounterID: dumpCounterID,
		db:            db,
	}
}

func (s *accountDumpService) WarningPass(now time.Time) (int, error) {
	dormant, err := s.customerRepo.ListDormant(now.Add(-s.idle))
	if err != nil {
		return 0, err
	}

	opened := 0
	for i := range dormant {
		customer := &dormant[i]
		if _, err := s.dumpRepo.GetOngoingByCustomer(customer.UserID); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return opened, err
		}

		user, err := s.userRepo.GetUserByID(customer.UserID)
		if err != nil {
			utils.LogError(err, "Loading owner of dormant account", map[string]interface{}{
				"customer_id": customer.UserID,
			})
			continue
		}

		dump := &models.AccountDump{
			CustomerID:        customer.UserID,
			WarningMailSentAt: now,
		}
		if s.mailer != nil {
			if err := s.mailer.SendDumpWarning(user, customer.Amount, now.Add(s.grace)); err != nil {
				dump.WarningMailError = true
				utils.LogError(err, "Sending dump warning mail", map[string]interface{}{
					"customer_id": customer.UserID,
				})
			}
		}
		if _, err := s.dumpRepo.Create(s.db, dump); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				continue
			}
			return opened, err
		}
		opened++
	}
	if opened > 0 {
		utils.LogInfo("Dormant account warning pass done", map[string]interface{}{"opened": opened})
	}
	return opened, nil
}

func (s *accountDumpService) DumpPass(now time.Time) (int, error) {
	due, err := s.dumpRepo.ListOngoingWarnedBefore(now.Add(-s.grace))
	if err != nil {
		return 0, err
	}

	drained := 0
	for i := range due {
		dump := &due[i]
		amount, err := s.drainOne(dump, now)
		if err != nil {
			utils.LogError(err, "Draining dormant account", map[string]interface{}{
				"customer_id": dump.CustomerID,
			})
			continue
		}
		if amount == nil {
			continue
		}
		drained++
		if s.mailer != nil {
			if user, err := s.userRepo.GetUserByID(dump.CustomerID); err == nil {
				if err := s.mailer.SendDumpNotice(user, *amount); err != nil {
					utils.LogError(err, "Sending dump notice mail", map[string]interface{}{
						"customer_id": dump.CustomerID,
					})
				}
			}
		}
	}
	if drained > 0 {
		utils.LogInfo("Dormant account drain pass done", map[string]interface{}{"drained": drained})
	}
	return drained, nil
}

// drainOne empties a single account in its own transaction. A nil amount
// with a nil error means the customer was dropped from the process because
// the account woke up or is already empty.
func (s *accountDumpService) drainOne(dump *models.AccountDump, now time.Time) (*decimal.Decimal, error) {
	var drained *decimal.Decimal
	err := s.db.InTx(func(tx repositories.SQLExecutor) error {
		customer, err := s.customerRepo.GetForUpdate(tx, dump.CustomerID)
		if err != nil {
			return err
		}

		// activity since the warning mail cancels the dump
		lastActivity, err := s.ledgerRepo.LastActivity(customer.UserID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		reactivated := err == nil && lastActivity.After(dump.WarningMailSentAt)
		if reactivated || !customer.Amount.IsPositive() {
			return s.dumpRepo.DeleteOngoing(tx, customer.UserID)
		}

		counter, err := s.counterRepo.GetCounterByID(s.dumpCounterID)
		if err != nil {
			return fmt.Errorf("loading dump counter %d: %w", s.dumpCounterID, err)
		}

		amount := customer.Amount
		customerID := customer.UserID
		selling := &models.Selling{
			Label:         dumpSellingLabel,
			CounterID:     counter.ID,
			ClubID:        counter.ClubID,
			CustomerID:    &customerID,
			UnitPrice:     amount,
			Quantity:      1,
			Date:          now,
			PaymentMethod: models.PaymentMethodSithAccount,
			IsValidated:   true,
		}
		if _, err := s.ledgerRepo.CreateSelling(tx, selling); err != nil {
			return err
		}
		if err := s.dumpRepo.SetDumpOperation(tx, dump.ID, selling.ID); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateAmount(tx, customer.UserID, decimal.Zero); err != nil {
			return err
		}
		drained = &amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drained, nil
}
