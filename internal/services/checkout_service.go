package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// BasketLine is one requested line of a bar sale.
type BasketLine struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// SaleRequest is the input of a bar/office checkout.
type SaleRequest struct {
	CounterID  int64        `json:"counter_id" binding:"required"`
	SellerID   int64        `json:"seller_id" binding:"required"`
	CustomerID int64        `json:"customer_id" binding:"required"`
	Lines      []BasketLine `json:"lines" binding:"required,dive"`
}

// SaleResult reports the created sellings and the post-sale balance.
type SaleResult struct {
	SellingIDs []int64         `json:"selling_ids"`
	Total      decimal.Decimal `json:"total"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// RefillRequest is the input of a customer account refill.
type RefillRequest struct {
	CounterID     int64                `json:"counter_id"`
	OperatorID    int64                `json:"operator_id"`
	CustomerID    int64                `json:"customer_id" binding:"required"`
	Amount        decimal.Decimal      `json:"amount" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	Bank          models.Bank          `json:"bank"`
	ChequeNumber  *string              `json:"cheque_number,omitempty"`
}

// CheckoutService performs atomic sales and refills at physical counters.
type CheckoutService interface {
	// PerformSale runs the whole bar checkout in one transaction: lock the
	// customer, re-check sellability, price the basket (tray discount),
	// emit validated sellings, debit, bump the permanency activity.
	// On any failure every write is rolled back.
	PerformSale(req SaleRequest) (*SaleResult, error)
	// Refill credits a customer account from an open BAR permanency.
	Refill(req RefillRequest) (*models.Refilling, error)
}

type checkoutService struct {
	customerRepo   repositories.CustomerRepository
	productRepo    repositories.ProductRepository
	counterRepo    repositories.CounterRepository
	ledgerRepo     repositories.LedgerRepository
	permanencyRepo repositories.PermanencyRepository
	userRepo       repositories.UserRepository
	catalog        CatalogService
	accounting     AccountingService
	trayThreshold  int
	trayDiscount   decimal.Decimal
	db             repositories.Store
}

// NewCheckoutService creates a new instance of CheckoutService.
func NewCheckoutService(
	customerRepo repositories.CustomerRepository,
	productRepo repositories.ProductRepository,
	counterRepo repositories.CounterRepository,
	ledgerRepo repositories.LedgerRepository,
	permanencyRepo repositories.PermanencyRepository,
	userRepo repositories.UserRepository,
	catalog CatalogService,
	accounting AccountingService,
	trayThreshold int,
	trayDiscount decimal.Decimal,
	db repositories.Store,
) CheckoutService {
	return &checkoutService{
		customerRepo:   customerRepo,
		productRepo:    productRepo,
		counterRepo:    counterRepo,
		ledgerRepo:     ledgerRepo,
		permanencyRepo: permanencyRepo,
		userRepo:       userRepo,
		catalog:        catalog,
		accounting:     accounting,
		trayThreshold:  trayThreshold,
		trayDiscount:   trayDiscount,
		db:             db,
	}
}

// pricedLine is a basket line with its product loaded and price resolved.
type pricedLine struct {
	product   *models.Product
	quantity  int
	unitPrice decimal.Decimal
}

func (l pricedLine) total() decimal.Decimal {
	return l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity)))
}

func (s *checkoutService) authorizeSeller(counter *models.Counter, sellerID int64) error {
	switch counter.Type {
	case models.CounterTypeBar:
		// bar sales require an open shift
		_, err := s.permanencyRepo.GetOpenByCounterAndUser(counter.ID, sellerID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrPermanencyClosed
			}
			return fmt.Errorf("checking permanency: %w", err)
		}
		return nil
	case models.CounterTypeOffice:
		if !counter.HasSeller(sellerID) {
			return ErrNotAuthorized
		}
		return nil
	default:
		return fmt.Errorf("%w: sales on the e-shop counter go through the eboutic service", ErrValidation)
	}
}

func (s *checkoutService) PerformSale(req SaleRequest) (*SaleResult, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: empty basket", ErrInvalidBasket)
	}
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %d must be >= 1", ErrInvalidBasket, line.ProductID)
		}
	}

	counter, err := s.counterRepo.GetCounterByID(req.CounterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: counter %d", ErrValidation, req.CounterID)
		}
		return nil, fmt.Errorf("loading counter %d: %w", req.CounterID, err)
	}
	if err := s.authorizeSeller(counter, req.SellerID); err != nil {
		return nil, err
	}

	buyer, err := s.userRepo.GetUserByID(req.CustomerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("loading buyer %d: %w", req.CustomerID, err)
	}
	if buyer.BannedCounter {
		return nil, ErrNotAuthorized
	}

	var result *SaleResult
	err = s.db.InTx(func(tx repositories.SQLExecutor) error {
		customer, err := s.customerRepo.GetForUpdate(tx, req.CustomerID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("locking customer %d: %w", req.CustomerID, err)
		}

		// pricing happens under the customer lock, so the sellability
		// re-check and the debit see the same state
		lines, err := s.priceLines(counter, buyer, req.Lines)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.total())
		}
		newBalance := customer.Amount.Sub(total)
		if newBalance.IsNegative() {
			return ErrInsufficientFunds
		}

		now := time.Now()
		sellingIDs, err := s.emitSellings(tx, counter, req.SellerID, req.CustomerID, lines, now)
		if err != nil {
			return err
		}

		if err := s.customerRepo.UpdateAmount(tx, req.CustomerID, newBalance); err != nil {
			return fmt.Errorf("debiting customer %d: %w", req.CustomerID, err)
		}
		if err := s.permanencyRepo.TouchActivity(tx, counter.ID, now); err != nil {
			return err
		}
		result = &SaleResult{SellingIDs: sellingIDs, Total: total, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// priceLines loads the products, re-checks sellability and resolves unit
// prices: special price for barmen on shift, then the tray discount when
// enough tray-flagged lines are present.
func (s *checkoutService) priceLines(counter *models.Counter, buyer *models.User, reqLines []BasketLine) ([]pricedLine, error) {
	ids := make([]int64, 0, len(reqLines))
	for _, line := range reqLines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.GetProductsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("loading basket products: %w", err)
	}

	now := time.Now()
	buyerOnShift := false
	if counter.Type == models.CounterTypeBar {
		_, err := s.permanencyRepo.GetOpenByCounterAndUser(counter.ID, buyer.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("checking buyer shift: %w", err)
		}
		buyerOnShift = err == nil
	}

	lines := make([]pricedLine, 0, len(reqLines))
	trayLines := 0
	for _, reqLine := range reqLines {
		product, ok := products[reqLine.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %d", ErrInvalidBasket, reqLine.ProductID)
		}
		if err := s.catalog.ProductSellable(product, counter, buyer, now); err != nil {
			return nil, err
		}
		price := product.SellingPrice
		if buyerOnShift {
			price = product.SpecialSellingPrice
		}
		if product.Tray {
			trayLines++
		}
		lines = append(lines, pricedLine{product: product, quantity: reqLine.Quantity, unitPrice: price})
	}

	// Tray rule: when at least trayThreshold tray-flagged lines are bought
	// together, every tray line's unit price drops by the flat configured
	// amount. The reduction is applied once per line, never compounded.
	if trayLines >= s.trayThreshold && s.trayThreshold > 0 {
		for i := range lines {
			if lines[i].product.Tray {
				lines[i].unitPrice = lines[i].unitPrice.Sub(s.trayDiscount)
			}
		}
	}

	// Cheapest lines first: refund products carry a negative price and
	// must show up before the debits in the statement.
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].unitPrice.LessThan(lines[j].unitPrice)
	})
	return lines, nil
}

// emitSellings writes one validated selling per line, plus the zero-priced
// companion row for products bound to a parent product (bundles).
func (s *checkoutService) emitSellings(
	tx repositories.SQLExecutor,
	counter *models.Counter,
	sellerID, customerID int64,
	lines []pricedLine,
	now time.Time,
) ([]int64, error) {
	var sellingIDs []int64
	for _, line := range lines {
		selling := &models.Selling{
			Label:         line.product.Name,
			ProductID:     &line.product.ID,
			CounterID:     counter.ID,
			ClubID:        line.product.ClubID,
			SellerID:      &sellerID,
			CustomerID:    &customerID,
			UnitPrice:     line.unitPrice,
			Quantity:      line.quantity,
			Date:          now,
			PaymentMethod: models.PaymentMethodSithAccount,
			IsValidated:   true,
		}
		if _, err := s.ledgerRepo.CreateSelling(tx, selling); err != nil {
			return nil, fmt.Errorf("creating selling for product %d: %w", line.product.ID, err)
		}
		if err := s.accounting.MirrorSelling(tx, selling); err != nil {
			return nil, err
		}
		sellingIDs = append(sellingIDs, selling.ID)

		if line.product.ParentProductID != nil {
			parent, err := s.productRepo.GetProductByID(*line.product.ParentProductID)
			if err != nil {
				return nil, fmt.Errorf("loading parent product %d: %w", *line.product.ParentProductID, err)
			}
			// the companion row records the bundle without charging it
			companion := &models.Selling{
				Label:         parent.Name,
				ProductID:     &parent.ID,
				CounterID:     counter.ID,
				ClubID:        parent.ClubID,
				SellerID:      &sellerID,
				CustomerID:    &customerID,
				UnitPrice:     decimal.Zero,
				Quantity:      line.quantity,
				Date:          now,
				PaymentMethod: models.PaymentMethodSithAccount,
				IsValidated:   true,
			}
			if _, err := s.ledgerRepo.CreateSelling(tx, companion); err != nil {
				return nil, fmt.Errorf("creating companion selling for product %d: %w", parent.ID, err)
			}
			sellingIDs = append(sellingIDs, companion.ID)
		}
	}
	return sellingIDs, nil
}

func (s *checkoutService) Refill(req RefillRequest) (*models.Refilling, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: refill amount must be positive", ErrValidation)
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCheck, models.PaymentMethodCash, models.PaymentMethodCard:
	default:
		return nil, fmt.Errorf("%w: unsupported refill payment method %q", ErrValidation, req.PaymentMethod)
	}

	counter, err := s.counterRepo.GetCounterByID(req.CounterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: counter %d", ErrValidation, req.CounterID)
		}
		return nil, fmt.Errorf("loading counter %d: %w", req.CounterID, err)
	}
	if counter.Type != models.CounterTypeBar {
		return nil, fmt.Errorf("%w: refills only happen at bar counters", ErrValidation)
	}
	if _, err := s.permanencyRepo.GetOpenByCounterAndUser(counter.ID, req.OperatorID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPermanencyClosed
		}
		return nil, fmt.Errorf("checking permanency: %w", err)
	}

	if req.PaymentMethod == models.PaymentMethodCheck && req.ChequeNumber != nil {
		seen, err := s.ledgerRepo.HasChequeBeenSeen(*req.ChequeNumber, req.Bank)
		if err != nil {
			return nil, err
		}
		if seen {
			// not enforced, only surfaced so the treasurer can investigate
			utils.LogInfo("Duplicate cheque on refill", map[string]interface{}{
				"cheque_number": *req.ChequeNumber,
				"bank":          string(req.Bank),
			})
		}
	}

	var refilling *models.Refilling
	err = s.db.InTx(func(tx repositories.SQLExecutor) error {
		customer, err := creditLocked(tx, s.customerRepo, req.CustomerID, req.Amount)
		if err != nil {
			return err
		}

		now := time.Now()
		bank := req.Bank
		if bank == "" {
			bank = models.BankOther
		}
		refilling = &models.Refilling{
			CounterID:     req.CounterID,
			OperatorID:    req.OperatorID,
			CustomerID:    req.CustomerID,
			Amount:        req.Amount,
			Date:          now,
			PaymentMethod: req.PaymentMethod,
			Bank:          bank,
			ChequeNumber:  req.ChequeNumber,
			IsValidated:   true,
		}
		if _, err := s.ledgerRepo.CreateRefilling(tx, refilling); err != nil {
			return fmt.Errorf("creating refilling: %w", err)
		}
		if err := s.accounting.MirrorRefilling(tx, refilling, counter.ClubID, customer.AccountID); err != nil {
			return err
		}
		return s.permanencyRepo.TouchActivity(tx, counter.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return refilling, nil
}
