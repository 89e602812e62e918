package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

// Stub repositories with overridable function fields. Getters default to
// ErrNotFound, writes default to success.

// stubStore satisfies repositories.Store without a database. InTx runs the
// callback immediately, so transactional service logic is exercised against
// the stub repositories.
type stubStore struct{}

func (stubStore) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (stubStore) QueryRow(string, ...interface{}) *sql.Row        { return nil }
func (stubStore) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }

func (s stubStore) InTx(fn func(tx repositories.SQLExecutor) error) error {
	return fn(s)
}

type stubUserRepo struct {
	getUserByID           func(int64) (*models.User, error)
	getUserByUsername     func(string) (*models.User, error)
	isInGroup             func(int64, int64) (bool, error)
	getLatestSubscription func(int64) (*models.Subscription, error)
}

func (s *stubUserRepo) GetUserByID(id int64) (*models.User, error) {
	if s.getUserByID != nil {
		return s.getUserByID(id)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubUserRepo) GetUserByUsername(username string) (*models.User, error) {
	if s.getUserByUsername != nil {
		return s.getUserByUsername(username)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubUserRepo) CreateUser(_ repositories.SQLExecutor, user *models.User) (int64, error) {
	return user.ID, nil
}

func (s *stubUserRepo) GetUserGroups(int64) ([]models.Group, error) { return nil, nil }

func (s *stubUserRepo) IsInGroup(userID, groupID int64) (bool, error) {
	if s.isInGroup != nil {
		return s.isInGroup(userID, groupID)
	}
	return false, nil
}

func (s *stubUserRepo) GetLatestSubscription(userID int64) (*models.Subscription, error) {
	if s.getLatestSubscription != nil {
		return s.getLatestSubscription(userID)
	}
	return nil, repositories.ErrNotFound
}

type stubCustomerRepo struct {
	getByUserID      func(int64) (*models.Customer, error)
	getForUpdate     func(int64) (*models.Customer, error)
	create           func(*models.Customer) error
	updateAmount     func(int64, decimal.Decimal) error
	maxAccountNumber func() (int64, error)
	listDormant      func(time.Time) ([]models.Customer, error)
}

func (s *stubCustomerRepo) GetByUserID(userID int64) (*models.Customer, error) {
	if s.getByUserID != nil {
		return s.getByUserID(userID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCustomerRepo) GetByAccountID(string) (*models.Customer, error) {
	return nil, repositories.ErrNotFound
}

func (s *stubCustomerRepo) GetForUpdate(_ repositories.SQLExecutor, userID int64) (*models.Customer, error) {
	if s.getForUpdate != nil {
		return s.getForUpdate(userID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCustomerRepo) Create(_ repositories.SQLExecutor, customer *models.Customer) error {
	if s.create != nil {
		return s.create(customer)
	}
	return nil
}

func (s *stubCustomerRepo) UpdateAmount(_ repositories.SQLExecutor, userID int64, amount decimal.Decimal) error {
	if s.updateAmount != nil {
		return s.updateAmount(userID, amount)
	}
	return nil
}

func (s *stubCustomerRepo) MaxAccountNumber() (int64, error) {
	if s.maxAccountNumber != nil {
		return s.maxAccountNumber()
	}
	return 0, nil
}

func (s *stubCustomerRepo) ListDormant(inactiveSince time.Time) ([]models.Customer, error) {
	if s.listDormant != nil {
		return s.listDormant(inactiveSince)
	}
	return nil, nil
}

type stubProductRepo struct {
	getProductByID        func(int64) (*models.Product, error)
	getProductsByIDs      func([]int64) (map[int64]*models.Product, error)
	getProductsForCounter func(int64) ([]models.Product, error)
}

func (s *stubProductRepo) GetProductByID(id int64) (*models.Product, error) {
	if s.getProductByID != nil {
		return s.getProductByID(id)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubProductRepo) GetProductsByIDs(ids []int64) (map[int64]*models.Product, error) {
	if s.getProductsByIDs != nil {
		return s.getProductsByIDs(ids)
	}
	return map[int64]*models.Product{}, nil
}

func (s *stubProductRepo) GetProductsForCounter(counterID int64) ([]models.Product, error) {
	if s.getProductsForCounter != nil {
		return s.getProductsForCounter(counterID)
	}
	return nil, nil
}

func (s *stubProductRepo) CreateProduct(_ repositories.SQLExecutor, product *models.Product) (int64, error) {
	return product.ID, nil
}

func (s *stubProductRepo) UpdateProduct(repositories.SQLExecutor, *models.Product) error { return nil }
func (s *stubProductRepo) ArchiveProduct(repositories.SQLExecutor, int64) error          { return nil }
func (s *stubProductRepo) SetBuyingGroups(repositories.SQLExecutor, int64, []int64) error {
	return nil
}
func (s *stubProductRepo) GetProductTypes() ([]models.ProductType, error) { return nil, nil }
func (s *stubProductRepo) CreateProductType(_ repositories.SQLExecutor, pt *models.ProductType) (int64, error) {
	return pt.ID, nil
}
func (s *stubProductRepo) UpdateProductType(repositories.SQLExecutor, *models.ProductType) error {
	return nil
}
func (s *stubProductRepo) DeleteProductType(repositories.SQLExecutor, int64) error { return nil }

type stubCounterRepo struct {
	getCounterByID    func(int64) (*models.Counter, error)
	getCounterByToken func(string) (*models.Counter, error)
	getEbouticCounter func() (*models.Counter, error)
}

func (s *stubCounterRepo) GetCounterByID(id int64) (*models.Counter, error) {
	if s.getCounterByID != nil {
		return s.getCounterByID(id)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCounterRepo) GetCounterByToken(token string) (*models.Counter, error) {
	if s.getCounterByToken != nil {
		return s.getCounterByToken(token)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCounterRepo) GetEbouticCounter() (*models.Counter, error) {
	if s.getEbouticCounter != nil {
		return s.getEbouticCounter()
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCounterRepo) GetCounters() ([]models.Counter, error) { return nil, nil }
func (s *stubCounterRepo) CreateCounter(_ repositories.SQLExecutor, counter *models.Counter) (int64, error) {
	return counter.ID, nil
}
func (s *stubCounterRepo) UpdateCounter(repositories.SQLExecutor, *models.Counter) error { return nil }
func (s *stubCounterRepo) SetCounterToken(repositories.SQLExecutor, int64, string) error {
	return nil
}
func (s *stubCounterRepo) SetProducts(repositories.SQLExecutor, int64, []int64) error { return nil }
func (s *stubCounterRepo) SetSellers(repositories.SQLExecutor, int64, []int64) error  { return nil }

type stubLedgerRepo struct {
	createRefilling         func(*models.Refilling) (int64, error)
	createSelling           func(*models.Selling) (int64, error)
	hasChequeBeenSeen       func(string, models.Bank) (bool, error)
	getRefillingsByCustomer func(int64, int) ([]models.Refilling, error)
	getSellingsByCustomer   func(int64, int) ([]models.Selling, error)
	lastActivity            func(int64) (time.Time, error)
}

func (s *stubLedgerRepo) CreateRefilling(_ repositories.SQLExecutor, refilling *models.Refilling) (int64, error) {
	if s.createRefilling != nil {
		return s.createRefilling(refilling)
	}
	return refilling.ID, nil
}

func (s *stubLedgerRepo) DeleteUnvalidatedRefilling(repositories.SQLExecutor, int64) error {
	return nil
}

func (s *stubLedgerRepo) HasChequeBeenSeen(chequeNumber string, bank models.Bank) (bool, error) {
	if s.hasChequeBeenSeen != nil {
		return s.hasChequeBeenSeen(chequeNumber, bank)
	}
	return false, nil
}

func (s *stubLedgerRepo) CreateSelling(_ repositories.SQLExecutor, selling *models.Selling) (int64, error) {
	if s.createSelling != nil {
		return s.createSelling(selling)
	}
	return selling.ID, nil
}

func (s *stubLedgerRepo) DeleteUnvalidatedSelling(repositories.SQLExecutor, int64) error { return nil }
func (s *stubLedgerRepo) SetSellingLinkedOperation(repositories.SQLExecutor, int64, int64) error {
	return nil
}
func (s *stubLedgerRepo) SetRefillingOperation(repositories.SQLExecutor, int64, int64) error {
	return nil
}

func (s *stubLedgerRepo) GetRefillingsByCustomer(customerID int64, limit int) ([]models.Refilling, error) {
	if s.getRefillingsByCustomer != nil {
		return s.getRefillingsByCustomer(customerID, limit)
	}
	return nil, nil
}

func (s *stubLedgerRepo) GetSellingsByCustomer(customerID int64, limit int) ([]models.Selling, error) {
	if s.getSellingsByCustomer != nil {
		return s.getSellingsByCustomer(customerID, limit)
	}
	return nil, nil
}

func (s *stubLedgerRepo) SumsForCustomer(int64) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.Zero, decimal.Zero, nil
}

func (s *stubLedgerRepo) LastActivity(customerID int64) (time.Time, error) {
	if s.lastActivity != nil {
		return s.lastActivity(customerID)
	}
	return time.Time{}, repositories.ErrNotFound
}

type stubPermanencyRepo struct {
	create                  func(*models.Permanency) (int64, error)
	getOpenByUser           func(int64) (*models.Permanency, error)
	getOpenByCounterAndUser func(int64, int64) (*models.Permanency, error)
	sweep                   func(time.Time) (int64, error)
	touchActivity           func(int64, time.Time) error
}

func (s *stubPermanencyRepo) Create(_ repositories.SQLExecutor, permanency *models.Permanency) (int64, error) {
	if s.create != nil {
		return s.create(permanency)
	}
	return permanency.ID, nil
}

func (s *stubPermanencyRepo) GetOpenByUser(userID int64) (*models.Permanency, error) {
	if s.getOpenByUser != nil {
		return s.getOpenByUser(userID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubPermanencyRepo) GetOpenByCounterAndUser(counterID, userID int64) (*models.Permanency, error) {
	if s.getOpenByCounterAndUser != nil {
		return s.getOpenByCounterAndUser(counterID, userID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubPermanencyRepo) ListOpenByCounter(int64) ([]models.Permanency, error) { return nil, nil }
func (s *stubPermanencyRepo) CounterIsOpen(int64) (bool, error)                    { return false, nil }
func (s *stubPermanencyRepo) Close(repositories.SQLExecutor, int64, time.Time) error {
	return nil
}

func (s *stubPermanencyRepo) TouchActivity(_ repositories.SQLExecutor, counterID int64, at time.Time) error {
	if s.touchActivity != nil {
		return s.touchActivity(counterID, at)
	}
	return nil
}

func (s *stubPermanencyRepo) Sweep(cutoff time.Time) (int64, error) {
	if s.sweep != nil {
		return s.sweep(cutoff)
	}
	return 0, nil
}

type stubBasketRepo struct {
	create       func(*models.Basket) (int64, error)
	getByID      func(int64) (*models.Basket, error)
	markConsumed func(int64) error
}

func (s *stubBasketRepo) Create(_ repositories.SQLExecutor, basket *models.Basket) (int64, error) {
	if s.create != nil {
		return s.create(basket)
	}
	basket.ID = 1
	return basket.ID, nil
}

func (s *stubBasketRepo) GetByID(basketID int64) (*models.Basket, error) {
	if s.getByID != nil {
		return s.getByID(basketID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubBasketRepo) GetForUpdate(_ repositories.SQLExecutor, basketID int64) (*models.Basket, error) {
	return s.GetByID(basketID)
}

func (s *stubBasketRepo) MarkConsumed(_ repositories.SQLExecutor, basketID int64) error {
	if s.markConsumed != nil {
		return s.markConsumed(basketID)
	}
	return nil
}
func (s *stubBasketRepo) Delete(repositories.SQLExecutor, int64) error { return nil }
func (s *stubBasketRepo) DeleteExpired(time.Time) (int64, error)       { return 0, nil }

type stubAccountDumpRepo struct {
	create                  func(*models.AccountDump) (int64, error)
	getOngoingByCustomer    func(int64) (*models.AccountDump, error)
	listOngoingWarnedBefore func(time.Time) ([]models.AccountDump, error)
}

func (s *stubAccountDumpRepo) Create(_ repositories.SQLExecutor, dump *models.AccountDump) (int64, error) {
	if s.create != nil {
		return s.create(dump)
	}
	return dump.ID, nil
}

func (s *stubAccountDumpRepo) GetOngoingByCustomer(customerID int64) (*models.AccountDump, error) {
	if s.getOngoingByCustomer != nil {
		return s.getOngoingByCustomer(customerID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubAccountDumpRepo) ListOngoingWarnedBefore(threshold time.Time) ([]models.AccountDump, error) {
	if s.listOngoingWarnedBefore != nil {
		return s.listOngoingWarnedBefore(threshold)
	}
	return nil, nil
}

func (s *stubAccountDumpRepo) SetDumpOperation(repositories.SQLExecutor, int64, int64) error {
	return nil
}
func (s *stubAccountDumpRepo) SetWarningMailError(repositories.SQLExecutor, int64) error { return nil }
func (s *stubAccountDumpRepo) DeleteOngoing(repositories.SQLExecutor, int64) error       { return nil }

type stubAccountingRepo struct {
	createJournal         func(*models.GeneralJournal) (int64, error)
	getJournalByID        func(int64) (*models.GeneralJournal, error)
	getJournalForUpdate   func(int64) (*models.GeneralJournal, error)
	getOpenJournalForClub func(int64) (*models.GeneralJournal, error)
	closeJournal          func(int64, time.Time) error
	nextOperationNumber   func(int64) (int, error)
	createOperation       func(*models.Operation) (int64, error)
}

func (s *stubAccountingRepo) CreateJournal(_ repositories.SQLExecutor, journal *models.GeneralJournal) (int64, error) {
	if s.createJournal != nil {
		return s.createJournal(journal)
	}
	journal.ID = 1
	return journal.ID, nil
}

func (s *stubAccountingRepo) GetJournalByID(journalID int64) (*models.GeneralJournal, error) {
	if s.getJournalByID != nil {
		return s.getJournalByID(journalID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubAccountingRepo) GetJournalForUpdate(_ repositories.SQLExecutor, journalID int64) (*models.GeneralJournal, error) {
	if s.getJournalForUpdate != nil {
		return s.getJournalForUpdate(journalID)
	}
	return s.GetJournalByID(journalID)
}

func (s *stubAccountingRepo) GetOpenJournalForClub(_ repositories.SQLExecutor, clubID int64) (*models.GeneralJournal, error) {
	if s.getOpenJournalForClub != nil {
		return s.getOpenJournalForClub(clubID)
	}
	return nil, repositories.ErrNotFound
}

func (s *stubAccountingRepo) CloseJournal(_ repositories.SQLExecutor, journalID int64, endDate time.Time) error {
	if s.closeJournal != nil {
		return s.closeJournal(journalID, endDate)
	}
	return nil
}

func (s *stubAccountingRepo) NextOperationNumber(_ repositories.SQLExecutor, journalID int64) (int, error) {
	if s.nextOperationNumber != nil {
		return s.nextOperationNumber(journalID)
	}
	return 1, nil
}

func (s *stubAccountingRepo) CreateOperation(_ repositories.SQLExecutor, operation *models.Operation) (int64, error) {
	if s.createOperation != nil {
		return s.createOperation(operation)
	}
	return operation.ID, nil
}

func (s *stubAccountingRepo) LinkOperations(repositories.SQLExecutor, int64, int64) error {
	return nil
}
func (s *stubAccountingRepo) UpdateJournalAmounts(repositories.SQLExecutor, int64) error {
	return nil
}
func (s *stubAccountingRepo) GetOperationsByJournal(int64) ([]models.Operation, error) {
	return nil, nil
}

var errStubMail = errors.New("smtp unavailable")

// stubMailer records sent notifications.
type stubMailer struct {
	warnings []int64
	notices  []int64
	fail     bool
}

func (m *stubMailer) SendDumpWarning(user *models.User, _ decimal.Decimal, _ time.Time) error {
	if m.fail {
		return errStubMail
	}
	m.warnings = append(m.warnings, user.ID)
	return nil
}

func (m *stubMailer) SendDumpNotice(user *models.User, _ decimal.Decimal) error {
	if m.fail {
		return errStubMail
	}
	m.notices = append(m.notices, user.ID)
	return nil
}
