package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

// accountIDAlphabet is the 23-letter checksum alphabet of customer account
// numbers; I and O are skipped to avoid confusion with 1 and 0.
const accountIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// openAccountMaxRetries bounds the uniqueness-collision retry loop of
// OpenAccount. Collisions should never happen in practice.
const openAccountMaxRetries = 10

// FormatAccountID renders the numeric part with its check letter appended,
// the letter being alphabet[number mod 23].
func FormatAccountID(number int64) string {
	return fmt.Sprintf("%d%c", number, accountIDAlphabet[number%23])
}

// StatementEntry is one line of a customer account statement, either a
// refilling (positive) or an account-paid selling (negative).
type StatementEntry struct {
	Date   time.Time       `json:"date"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CustomerService manages customer monetary accounts.
type CustomerService interface {
	// OpenAccount returns the user's existing account, or creates one with
	// a fresh unique account id and a zero balance.
	OpenAccount(userID int64) (*models.Customer, error)
	GetCustomer(userID int64) (*models.Customer, error)
	Balance(userID int64) (decimal.Decimal, error)
	// Credit adds money to the account, holding the customer row lock.
	Credit(userID int64, amount decimal.Decimal) (*models.Customer, error)
	// Debit removes money from the account; fails with ErrInsufficientFunds
	// when the post-balance would be negative.
	Debit(userID int64, amount decimal.Decimal) (*models.Customer, error)
	Statement(userID int64, limit int) ([]StatementEntry, error)
	// CanBuy reports whether the customer has purchase rights: the last
	// subscription must have ended less than 90 days ago.
	CanBuy(userID int64, now time.Time) (bool, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	ledgerRepo   repositories.LedgerRepository
	userRepo     repositories.UserRepository
	db           repositories.Store
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(
	cr repositories.CustomerRepository,
	lr repositories.LedgerRepository,
	ur repositories.UserRepository,
	db repositories.Store,
) CustomerService {
	return &customerService{customerRepo: cr, ledgerRepo: lr, userRepo: ur, db: db}
}

func (s *customerService) OpenAccount(userID int64) (*models.Customer, error) {
	existing, err := s.customerRepo.GetByUserID(userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("checking existing account for user %d: %w", userID, err)
	}

	maxNumber, err := s.customerRepo.MaxAccountNumber()
	if err != nil {
		return nil, fmt.Errorf("getting max account number: %w", err)
	}
	// Account id numbering historically starts at 10000 so that every id
	// has at least five digits.
	if maxNumber < 9999 {
		maxNumber = 9999
	}

	for attempt := 0; attempt < openAccountMaxRetries; attempt++ {
		number := maxNumber + 1 + int64(attempt)
		customer := &models.Customer{
			UserID:    userID,
			AccountID: FormatAccountID(number),
			Amount:    decimal.Zero,
		}
		err := s.customerRepo.Create(s.db, customer)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("creating account for user %d: %w", userID, err)
		}
		// someone raced us to this account id, try the next one
	}
	return nil, fmt.Errorf("could not allocate a unique account id for user %d", userID)
}

func (s *customerService) GetCustomer(userID int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", userID, err)
	}
	return customer, nil
}

func (s *customerService) Balance(userID int64) (decimal.Decimal, error) {
	customer, err := s.GetCustomer(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return customer.Amount, nil
}

func (s *customerService) Credit(userID int64, amount decimal.Decimal) (*models.Customer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}

	var customer *models.Customer
	err := s.db.InTx(func(tx repositories.SQLExecutor) error {
		var err error
		customer, err = creditLocked(tx, s.customerRepo, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) Debit(userID int64, amount decimal.Decimal) (*models.Customer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}

	var customer *models.Customer
	err := s.db.InTx(func(tx repositories.SQLExecutor) error {
		var err error
		customer, err = debitLocked(tx, s.customerRepo, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// creditLocked locks the customer row and adds the amount to the balance.
// It must run inside the caller's transaction.
func creditLocked(executor repositories.SQLExecutor, repo repositories.CustomerRepository, userID int64, amount decimal.Decimal) (*models.Customer, error) {
	customer, err := repo.GetForUpdate(executor, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("locking customer %d: %w", userID, err)
	}
	customer.Amount = customer.Amount.Add(amount)
	if err := repo.UpdateAmount(executor, userID, customer.Amount); err != nil {
		return nil, fmt.Errorf("crediting customer %d: %w", userID, err)
	}
	return customer, nil
}

// debitLocked locks the customer row and subtracts the amount, refusing to
// take the balance negative. It must run inside the caller's transaction.
func debitLocked(executor repositories.SQLExecutor, repo repositories.CustomerRepository, userID int64, amount decimal.Decimal) (*models.Customer, error) {
	customer, err := repo.GetForUpdate(executor, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("locking customer %d: %w", userID, err)
	}
	newAmount := customer.Amount.Sub(amount)
	if newAmount.IsNegative() {
		return nil, ErrInsufficientFunds
	}
	customer.Amount = newAmount
	if err := repo.UpdateAmount(executor, userID, customer.Amount); err != nil {
		return nil, fmt.Errorf("debiting customer %d: %w", userID, err)
	}
	return customer, nil
}

func (s *customerService) Statement(userID int64, limit int) ([]StatementEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	refillings, err := s.ledgerRepo.GetRefillingsByCustomer(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting refillings for statement: %w", err)
	}
	sellings, err := s.ledgerRepo.GetSellingsByCustomer(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting sellings for statement: %w", err)
	}

	entries := make([]StatementEntry, 0, len(refillings)+len(sellings))
	for _, r := range refillings {
		entries = append(entries, StatementEntry{
			Date:   r.Date,
			Label:  fmt.Sprintf("Refilling (%s)", r.PaymentMethod),
			Amount: r.Amount,
		})
	}
	for _, sale := range sellings {
		amount := sale.Total()
		if sale.PaymentMethod == models.PaymentMethodSithAccount {
			amount = amount.Neg()
		}
		entries = append(entries, StatementEntry{
			Date:   sale.Date,
			Label:  fmt.Sprintf("%d x %s", sale.Quantity, sale.Label),
			Amount: amount,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *customerService) CanBuy(userID int64, now time.Time) (bool, error) {
	sub, err := s.userRepo.GetLatestSubscription(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("getting latest subscription of user %d: %w", userID, err)
	}
	return now.Sub(sub.SubscriptionEnd) < 90*24*time.Hour, nil
}
