package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/pkg/etransaction"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// PaymentData is everything the front-end needs to redirect the buyer to
// the bank gateway.
type PaymentData struct {
	GatewayURL  string `json:"gateway_url"`
	AmountCents int64  `json:"amount_cents"`
	BasketID    int64  `json:"basket_id"`
	MerchantRef string `json:"merchant_ref"`
	Signature   string `json:"signature"`
}

// EbouticService handles the online shop: basket building, the account
// payment path and the signed bank gateway round-trip.
type EbouticService interface {
	// BuildBasket validates the requested lines against the e-shop counter
	// and persists a basket with price snapshots.
	BuildBasket(userID int64, lines []BasketLine) (*models.Basket, error)
	GetBasket(basketID, userID int64) (*models.Basket, error)
	// PaymentData signs the canonical payment message for a basket.
	PaymentData(basketID, userID int64) (*PaymentData, error)
	// PayWithSithAccount settles the basket against the buyer's account in
	// a single transaction and consumes the basket. Baskets holding
	// refilling products are refused: an account cannot refill itself.
	PayWithSithAccount(basketID, userID int64) (*SaleResult, error)
	// HandleCallback processes a signed answer from the bank gateway.
	// It is idempotent: replaying an already consumed basket fails with
	// ErrBasketAlreadyConsumed and writes nothing.
	HandleCallback(rawQuery string) error
	// PurgeExpired drops unconsumed baskets older than the TTL.
	PurgeExpired(now time.Time) (int64, error)
}

type ebouticService struct {
	basketRepo      repositories.BasketRepository
	customerRepo    repositories.CustomerRepository
	productRepo     repositories.ProductRepository
	counterRepo     repositories.CounterRepository
	ledgerRepo      repositories.LedgerRepository
	userRepo        repositories.UserRepository
	catalog         CatalogService
	customers       CustomerService
	accounting      AccountingService
	signer          *etransaction.Signer
	verifier        *etransaction.Verifier
	gatewayURL      string
	basketTTL       time.Duration
	eshopSellerID   int64
	refillingTypeID int64
	db              repositories.Store
}

// NewEbouticService creates a new instance of EbouticService.
func NewEbouticService(
	basketRepo repositories.BasketRepository,
	customerRepo repositories.CustomerRepository,
	productRepo repositories.ProductRepository,
	counterRepo repositories.CounterRepository,
	ledgerRepo repositories.LedgerRepository,
	userRepo repositories.UserRepository,
	catalog CatalogService,
	customers CustomerService,
	accounting AccountingService,
	signer *etransaction.Signer,
	verifier *etransaction.Verifier,
	gatewayURL string,
	basketTTL time.Duration,
	eshopSellerID int64,
	refillingTypeID int64,
	db repositories.Store,
) EbouticService {
	return &ebouticService{
		basketRepo:      basketRepo,
		customerRepo:    customerRepo,
		productRepo:     productRepo,
		counterRepo:     counterRepo,
		ledgerRepo:      ledgerRepo,
		userRepo:        userRepo,
		catalog:         catalog,
		customers:       customers,
		accounting:      accounting,
		signer:          signer,
		verifier:        verifier,
		gatewayURL:      gatewayURL,
		basketTTL:       basketTTL,
		eshopSellerID:   eshopSellerID,
		refillingTypeID: refillingTypeID,
		db:              db,
	}
}

// isRefillingItem reports whether the item holds the product type that
// credits the customer account instead of selling goods.
func (s *ebouticService) isRefillingItem(item models.BasketItem) bool {
	return item.ProductTypeID != nil && *item.ProductTypeID == s.refillingTypeID
}

func (s *ebouticService) containsRefilling(basket *models.Basket) bool {
	for _, item := range basket.Items {
		if s.isRefillingItem(item) {
			return true
		}
	}
	return false
}

func (s *ebouticService) BuildBasket(userID int64, lines []BasketLine) (*models.Basket, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty basket", ErrInvalidBasket)
	}

	counter, err := s.counterRepo.GetEbouticCounter()
	if err != nil {
		return nil, fmt.Errorf("loading e-shop counter: %w", err)
	}
	buyer, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading buyer %d: %w", userID, err)
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %d must be >= 1", ErrInvalidBasket, line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}
	products, err := s.productRepo.GetProductsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("loading basket products: %w", err)
	}

	now := time.Now()
	basket := &models.Basket{
		UserID:      userID,
		MerchantRef: uuid.NewString(),
		Date:        now,
	}
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %d", ErrInvalidBasket, line.ProductID)
		}
		if err := s.catalog.ProductSellable(product, counter, buyer, now); err != nil {
			return nil, err
		}
		basket.Items = append(basket.Items, models.BasketItem{
			ProductID:        product.ID,
			ProductName:      product.Name,
			ProductTypeID:    product.ProductTypeID,
			ProductUnitPrice: product.SellingPrice,
			Quantity:         line.Quantity,
		})
	}

	if _, err := s.basketRepo.Create(s.db, basket); err != nil {
		return nil, err
	}
	return basket, nil
}

func (s *ebouticService) GetBasket(basketID, userID int64) (*models.Basket, error) {
	basket, err := s.basketRepo.GetByID(basketID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidBasket
		}
		return nil, err
	}
	if basket.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return basket, nil
}

func (s *ebouticService) PaymentData(basketID, userID int64) (*PaymentData, error) {
	basket, err := s.GetBasket(basketID, userID)
	if err != nil {
		return nil, err
	}
	if basket.Consumed {
		return nil, ErrBasketAlreadyConsumed
	}
	message := etransaction.PaymentMessage(basket.TotalCents(), basket.ID, basket.MerchantRef)
	signature, err := s.signer.Sign(message)
	if err != nil {
		return nil, err
	}
	return &PaymentData{
		GatewayURL:  s.gatewayURL,
		AmountCents: basket.TotalCents(),
		BasketID:    basket.ID,
		MerchantRef: basket.MerchantRef,
		Signature:   signature,
	}, nil
}

func (s *ebouticService) PayWithSithAccount(basketID, userID int64) (*SaleResult, error) {
	counter, err := s.counterRepo.GetEbouticCounter()
	if err != nil {
		return nil, fmt.Errorf("loading e-shop counter: %w", err)
	}

	var result *SaleResult
	err = s.db.InTx(func(tx repositories.SQLExecutor) error {
		basket, err := s.basketRepo.GetForUpdate(tx, basketID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrInvalidBasket
			}
			return err
		}
		if basket.UserID != userID {
			return ErrNotAuthorized
		}
		if basket.Consumed {
			return ErrBasketAlreadyConsumed
		}
		if s.containsRefilling(basket) {
			return fmt.Errorf("%w: refilling products cannot be paid with the account", ErrInvalidBasket)
		}
		now := time.Now()
		if now.Sub(basket.Date) > s.basketTTL {
			return ErrBasketExpired
		}

		total := basket.Total()
		customer, err := debitLocked(tx, s.customerRepo, userID, total)
		if err != nil {
			return err
		}

		sellingIDs, err := s.emitBasketSellings(tx, counter, basket, models.PaymentMethodSithAccount, &userID, now)
		if err != nil {
			return err
		}
		if err := s.basketRepo.MarkConsumed(tx, basketID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrBasketAlreadyConsumed
			}
			return err
		}
		result = &SaleResult{SellingIDs: sellingIDs, Total: total, NewBalance: customer.Amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ebouticService) HandleCallback(rawQuery string) error {
	callback, signed, sig, err := etransaction.ParseCallback(rawQuery)
	if err != nil {
		return err
	}
	if err := s.verifier.Verify(signed, sig); err != nil {
		return ErrInvalidSignature
	}

	counter, err := s.counterRepo.GetEbouticCounter()
	if err != nil {
		return fmt.Errorf("loading e-shop counter: %w", err)
	}

	err = s.db.InTx(func(tx repositories.SQLExecutor) error {
		basket, err := s.basketRepo.GetForUpdate(tx, callback.BasketID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: unknown basket %d", ErrInvalidBasket, callback.BasketID)
			}
			return err
		}
		if basket.Consumed {
			return ErrBasketAlreadyConsumed
		}
		now := time.Now()
		if now.Sub(basket.Date) > s.basketTTL {
			return ErrBasketExpired
		}
		if basket.TotalCents() != callback.AmountCents {
			return fmt.Errorf("%w: amount mismatch for basket %d (got %d cents, expected %d)",
				ErrInvalidBasket, basket.ID, callback.AmountCents, basket.TotalCents())
		}

		if !callback.Authorized() {
			utils.LogInfo("Gateway refused payment", map[string]interface{}{
				"basket_id":  basket.ID,
				"error_code": callback.ErrorCode,
			})
			return ErrPaymentRefused
		}

		// a customer reference is optional on the card path, unless the
		// basket refills the account, in which case one is opened
		var customerID *int64
		if _, err := s.customerRepo.GetByUserID(basket.UserID); err == nil {
			customerID = &basket.UserID
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		} else if s.containsRefilling(basket) {
			if _, err := s.customers.OpenAccount(basket.UserID); err != nil {
				return err
			}
			customerID = &basket.UserID
		}

		if err := s.emitBasketRefill(tx, counter, basket, now); err != nil {
			return err
		}
		if _, err := s.emitBasketSellings(tx, counter, basket, models.PaymentMethodCard, customerID, now); err != nil {
			return err
		}
		if err := s.basketRepo.MarkConsumed(tx, basket.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrBasketAlreadyConsumed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	utils.LogInfo("Gateway payment settled", map[string]interface{}{
		"basket_id":    callback.BasketID,
		"amount_cents": callback.AmountCents,
	})
	return nil
}

// emitBasketRefill credits the account with the refilling items of a
// card-paid basket, one refilling row per item.
func (s *ebouticService) emitBasketRefill(
	tx repositories.SQLExecutor,
	counter *models.Counter,
	basket *models.Basket,
	now time.Time,
) error {
	total := decimal.Zero
	for _, item := range basket.Items {
		if s.isRefillingItem(item) {
			total = total.Add(item.ProductUnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	if !total.IsPositive() {
		return nil
	}

	customer, err := creditLocked(tx, s.customerRepo, basket.UserID, total)
	if err != nil {
		return err
	}
	for _, item := range basket.Items {
		if !s.isRefillingItem(item) {
			continue
		}
		refilling := &models.Refilling{
			CounterID:     counter.ID,
			OperatorID:    basket.UserID,
			CustomerID:    basket.UserID,
			Amount:        item.ProductUnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Date:          now,
			PaymentMethod: models.PaymentMethodEboutic,
			Bank:          models.BankOther,
			IsValidated:   true,
		}
		if _, err := s.ledgerRepo.CreateRefilling(tx, refilling); err != nil {
			return fmt.Errorf("creating refilling for basket item %d: %w", item.ID, err)
		}
		if err := s.accounting.MirrorRefilling(tx, refilling, counter.ClubID, customer.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// emitBasketSellings writes one validated selling per non-refilling basket
// item, using the add-time price snapshots. The seller is the configured
// e-shop operator.
func (s *ebouticService) emitBasketSellings(
	tx repositories.SQLExecutor,
	counter *models.Counter,
	basket *models.Basket,
	method models.PaymentMethod,
	customerID *int64,
	now time.Time,
) ([]int64, error) {
	var sellingIDs []int64
	for _, item := range basket.Items {
		if s.isRefillingItem(item) {
			continue
		}
		clubID := counter.ClubID
		productID := item.ProductID
		product, err := s.productRepo.GetProductByID(item.ProductID)
		if err == nil {
			clubID = product.ClubID
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		selling := &models.Selling{
			Label:         item.ProductName,
			ProductID:     &productID,
			CounterID:     counter.ID,
			ClubID:        clubID,
			SellerID:      &s.eshopSellerID,
			CustomerID:    customerID,
			UnitPrice:     item.ProductUnitPrice,
			Quantity:      item.Quantity,
			Date:          now,
			PaymentMethod: method,
			IsValidated:   true,
		}
		if _, err := s.ledgerRepo.CreateSelling(tx, selling); err != nil {
			return nil, fmt.Errorf("creating selling for basket item %d: %w", item.ID, err)
		}
		if err := s.accounting.MirrorSelling(tx, selling); err != nil {
			return nil, err
		}
		sellingIDs = append(sellingIDs, selling.ID)
	}
	return sellingIDs, nil
}

func (s *ebouticService) PurgeExpired(now time.Time) (int64, error) {
	n, err := s.basketRepo.DeleteExpired(now.Add(-s.basketTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		utils.LogInfo("Purged expired baskets", map[string]interface{}{"count": n})
	}
	return n, nil
}
