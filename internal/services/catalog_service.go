package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

// PricedProduct is a product with the unit price resolved for a given
// buyer at a given counter.
type PricedProduct struct {
	models.Product
	Price decimal.Decimal `json:"price"`
}

// CatalogService evaluates product eligibility and exposes the catalogue
// administration operations.
type CatalogService interface {
	// ProductSellable returns nil iff the product may be sold to the buyer
	// at the counter right now. On refusal the error unwraps to
	// ErrProductNotSellable and carries the reason.
	ProductSellable(product *models.Product, counter *models.Counter, buyer *models.User, now time.Time) error
	// ProductsFor lists the eligible products on a counter for a buyer,
	// with prices resolved (barmen on shift get the special price).
	ProductsFor(counterID, buyerUserID int64) ([]PricedProduct, error)
	// BuyerInGroups reports whether the buyer belongs to any of the given
	// buying groups, counting the subscribers group for currently
	// subscribed members.
	BuyerInGroups(buyerUserID int64, groupIDs []int64, now time.Time) (bool, error)

	GetProduct(productID int64) (*models.Product, error)
	CreateProduct(product *models.Product, buyingGroupIDs []int64) (*models.Product, error)
	UpdateProduct(product *models.Product, buyingGroupIDs []int64) error
	ArchiveProduct(productID int64) error
	GetProductTypes() ([]models.ProductType, error)
	CreateProductType(pt *models.ProductType) (*models.ProductType, error)
	UpdateProductType(pt *models.ProductType) error
	DeleteProductType(productTypeID int64) error
}

type catalogService struct {
	productRepo        repositories.ProductRepository
	counterRepo        repositories.CounterRepository
	userRepo           repositories.UserRepository
	permanencyRepo     repositories.PermanencyRepository
	subscribersGroupID int64
	db                 repositories.Store
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(
	pr repositories.ProductRepository,
	cr repositories.CounterRepository,
	ur repositories.UserRepository,
	permRepo repositories.PermanencyRepository,
	subscribersGroupID int64,
	db repositories.Store,
) CatalogService {
	return &catalogService{
		productRepo:        pr,
		counterRepo:        cr,
		userRepo:           ur,
		permanencyRepo:     permRepo,
		subscribersGroupID: subscribersGroupID,
		db:                 db,
	}
}

// effectiveAge returns the buyer's age for limit checks. Users banned from
// alcohol are capped at 17 whatever their real age.
func effectiveAge(buyer *models.User, now time.Time) int {
	age := buyer.Age(now)
	if buyer.BannedAlcohol && age > 17 {
		return 17
	}
	return age
}

func (s *catalogService) ProductSellable(product *models.Product, counter *models.Counter, buyer *models.User, now time.Time) error {
	if product.Archived {
		return &NotSellableError{ProductID: product.ID, ProductName: product.Name, Reason: ReasonArchived}
	}
	if !counter.SellsProduct(product.ID) {
		return &NotSellableError{ProductID: product.ID, ProductName: product.Name, Reason: ReasonNotOnCounter}
	}
	allowed, err := s.BuyerInGroups(buyer.ID, product.BuyingGroupIDs, now)
	if err != nil {
		return err
	}
	if !allowed {
		return &NotSellableError{ProductID: product.ID, ProductName: product.Name, Reason: ReasonGroup}
	}
	if product.LimitAge > 0 && effectiveAge(buyer, now) < product.LimitAge {
		return &NotSellableError{ProductID: product.ID, ProductName: product.Name, Reason: ReasonAge}
	}
	return nil
}

func (s *catalogService) BuyerInGroups(buyerUserID int64, groupIDs []int64, now time.Time) (bool, error) {
	if len(groupIDs) == 0 {
		// an empty buying-group set means the product is public
		return true, nil
	}
	for _, groupID := range groupIDs {
		if groupID == s.subscribersGroupID {
			sub, err := s.userRepo.GetLatestSubscription(buyerUserID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return false, fmt.Errorf("checking subscription of user %d: %w", buyerUserID, err)
			}
			if sub != nil && sub.SubscriptionEnd.After(now) {
				return true, nil
			}
			continue
		}
		member, err := s.userRepo.IsInGroup(buyerUserID, groupID)
		if err != nil {
			return false, fmt.Errorf("checking group %d membership of user %d: %w", groupID, buyerUserID, err)
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

func (s *catalogService) ProductsFor(counterID, buyerUserID int64) ([]PricedProduct, error) {
	counter, err := s.counterRepo.GetCounterByID(counterID)
	if err != nil {
		return nil, fmt.Errorf("loading counter %d: %w", counterID, err)
	}
	buyer, err := s.userRepo.GetUserByID(buyerUserID)
	if err != nil {
		return nil, fmt.Errorf("loading buyer %d: %w", buyerUserID, err)
	}
	products, err := s.productRepo.GetProductsForCounter(counterID)
	if err != nil {
		return nil, fmt.Errorf("loading products of counter %d: %w", counterID, err)
	}

	now := time.Now()
	onShift := false
	if counter.Type == models.CounterTypeBar {
		_, err := s.permanencyRepo.GetOpenByCounterAndUser(counterID, buyerUserID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("checking shift of user %d: %w", buyerUserID, err)
		}
		onShift = err == nil
	}

	var eligible []PricedProduct
	for _, product := range products {
		if err := s.ProductSellable(&product, counter, buyer, now); err != nil {
			if errors.Is(err, ErrProductNotSellable) {
				continue
			}
			return nil, err
		}
		price := product.SellingPrice
		if onShift {
			price = product.SpecialSellingPrice
		}
		eligible = append(eligible, PricedProduct{Product: product, Price: price})
	}
	return eligible, nil
}

func (s *catalogService) GetProduct(productID int64) (*models.Product, error) {
	product, err := s.productRepo.GetProductByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrValidation, productID)
		}
		return nil, fmt.Errorf("getting product %d: %w", productID, err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(product *models.Product, buyingGroupIDs []int64) (*models.Product, error) {
	if product.SellingPrice.IsNegative() {
		return nil, fmt.Errorf("%w: selling price must be >= 0", ErrValidation)
	}
	if len(product.Code) > 16 {
		return nil, fmt.Errorf("%w: product code must be at most 16 characters", ErrValidation)
	}

	err := s.db.InTx(func(tx repositories.SQLExecutor) error {
		if _, err := s.productRepo.CreateProduct(tx, product); err != nil {
			return fmt.Errorf("creating product: %w", err)
		}
		if err := s.productRepo.SetBuyingGroups(tx, product.ID, buyingGroupIDs); err != nil {
			return fmt.Errorf("setting buying groups: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	product.BuyingGroupIDs = buyingGroupIDs
	return product, nil
}

func (s *catalogService) UpdateProduct(product *models.Product, buyingGroupIDs []int64) error {
	if product.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: selling price must be >= 0", ErrValidation)
	}

	return s.db.InTx(func(tx repositories.SQLExecutor) error {
		if err := s.productRepo.UpdateProduct(tx, product); err != nil {
			return fmt.Errorf("updating product %d: %w", product.ID, err)
		}
		if err := s.productRepo.SetBuyingGroups(tx, product.ID, buyingGroupIDs); err != nil {
			return fmt.Errorf("setting buying groups: %w", err)
		}
		return nil
	})
}

func (s *catalogService) ArchiveProduct(productID int64) error {
	return s.productRepo.ArchiveProduct(s.db, productID)
}

func (s *catalogService) GetProductTypes() ([]models.ProductType, error) {
	return s.productRepo.GetProductTypes()
}

func (s *catalogService) CreateProductType(pt *models.ProductType) (*models.ProductType, error) {
	if _, err := s.productRepo.CreateProductType(s.db, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

func (s *catalogService) UpdateProductType(pt *models.ProductType) error {
	return s.productRepo.UpdateProductType(s.db, pt)
}

func (s *catalogService) DeleteProductType(productTypeID int64) error {
	return s.productRepo.DeleteProductType(s.db, productTypeID)
}
