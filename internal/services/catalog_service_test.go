package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-utbm/sith-pos/internal/models"
)

const testSubscribersGroupID = int64(2)

func newTestCatalog(userRepo *stubUserRepo) CatalogService {
	if userRepo == nil {
		userRepo = &stubUserRepo{}
	}
	return NewCatalogService(&stubProductRepo{}, &stubCounterRepo{}, userRepo, &stubPermanencyRepo{}, testSubscribersGroupID, stubStore{})
}

func birthDate(age int, now time.Time) *time.Time {
	d := now.AddDate(-age, 0, -1)
	return &d
}

func TestProductSellable(t *testing.T) {
	current := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	counter := &models.Counter{ID: 1, Type: models.CounterTypeBar, ProductIDs: []int64{10}}
	buyer := &models.User{ID: 5, DateOfBirth: birthDate(20, current)}

	t.Run("sellable product", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", LimitAge: 18}
		err := newTestCatalog(nil).ProductSellable(product, counter, buyer, current)
		assert.NoError(t, err)
	})

	t.Run("archived product", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", Archived: true}
		err := newTestCatalog(nil).ProductSellable(product, counter, buyer, current)
		require.ErrorIs(t, err, ErrProductNotSellable)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonArchived, notSellable.Reason)
	})

	t.Run("product not on counter", func(t *testing.T) {
		product := &models.Product{ID: 11, Name: "Wine"}
		err := newTestCatalog(nil).ProductSellable(product, counter, buyer, current)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonNotOnCounter, notSellable.Reason)
	})

	t.Run("buyer not in buying groups", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", BuyingGroupIDs: []int64{99}}
		err := newTestCatalog(nil).ProductSellable(product, counter, buyer, current)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonGroup, notSellable.Reason)
	})

	t.Run("buyer too young", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", LimitAge: 18}
		minor := &models.User{ID: 5, DateOfBirth: birthDate(16, current)}
		err := newTestCatalog(nil).ProductSellable(product, counter, minor, current)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonAge, notSellable.Reason)
	})

	t.Run("alcohol ban caps the age", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", LimitAge: 18}
		banned := &models.User{ID: 5, DateOfBirth: birthDate(25, current), BannedAlcohol: true}
		err := newTestCatalog(nil).ProductSellable(product, counter, banned, current)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonAge, notSellable.Reason)
	})

	t.Run("unknown birth date fails any age limit", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Beer", LimitAge: 18}
		unknown := &models.User{ID: 5}
		err := newTestCatalog(nil).ProductSellable(product, counter, unknown, current)
		var notSellable *NotSellableError
		require.ErrorAs(t, err, &notSellable)
		assert.Equal(t, ReasonAge, notSellable.Reason)
	})

	t.Run("no age limit ignores the birth date", func(t *testing.T) {
		product := &models.Product{ID: 10, Name: "Coffee"}
		unknown := &models.User{ID: 5}
		err := newTestCatalog(nil).ProductSellable(product, counter, unknown, current)
		assert.NoError(t, err)
	})
}

func TestEffectiveAge(t *testing.T) {
	current := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	adult := &models.User{DateOfBirth: birthDate(30, current)}
	assert.Equal(t, 30, effectiveAge(adult, current))

	banned := &models.User{DateOfBirth: birthDate(30, current), BannedAlcohol: true}
	assert.Equal(t, 17, effectiveAge(banned, current))

	bannedMinor := &models.User{DateOfBirth: birthDate(15, current), BannedAlcohol: true}
	assert.Equal(t, 15, effectiveAge(bannedMinor, current))
}

func TestBuyerInGroups(t *testing.T) {
	current := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty set means public", func(t *testing.T) {
		allowed, err := newTestCatalog(nil).BuyerInGroups(1, nil, current)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("current subscriber matches the subscribers group", func(t *testing.T) {
		userRepo := &stubUserRepo{
			getLatestSubscription: func(int64) (*models.Subscription, error) {
				return &models.Subscription{SubscriptionEnd: current.AddDate(0, 1, 0)}, nil
			},
		}
		allowed, err := newTestCatalog(userRepo).BuyerInGroups(1, []int64{testSubscribersGroupID}, current)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("lapsed subscriber does not match", func(t *testing.T) {
		userRepo := &stubUserRepo{
			getLatestSubscription: func(int64) (*models.Subscription, error) {
				return &models.Subscription{SubscriptionEnd: current.AddDate(0, -1, 0)}, nil
			},
		}
		allowed, err := newTestCatalog(userRepo).BuyerInGroups(1, []int64{testSubscribersGroupID}, current)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("never subscribed does not match", func(t *testing.T) {
		allowed, err := newTestCatalog(nil).BuyerInGroups(1, []int64{testSubscribersGroupID}, current)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("any matching group is enough", func(t *testing.T) {
		userRepo := &stubUserRepo{
			isInGroup: func(_ int64, groupID int64) (bool, error) {
				return groupID == 7, nil
			},
		}
		allowed, err := newTestCatalog(userRepo).BuyerInGroups(1, []int64{4, 7}, current)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("membership lookup error is propagated", func(t *testing.T) {
		boom := errors.New("connection reset")
		userRepo := &stubUserRepo{
			isInGroup: func(int64, int64) (bool, error) { return false, boom },
		}
		_, err := newTestCatalog(userRepo).BuyerInGroups(1, []int64{4}, current)
		assert.ErrorIs(t, err, boom)
	})
}

func TestProductsForFiltersAndPrices(t *testing.T) {
	counter := &models.Counter{ID: 1, Type: models.CounterTypeOffice, ProductIDs: []int64{10, 11}}
	buyer := &models.User{ID: 5}
	products := []models.Product{
		{ID: 10, Name: "Sticker", SellingPrice: decimal.NewFromFloat(1.00), SpecialSellingPrice: decimal.NewFromFloat(0.50)},
		{ID: 11, Name: "Old poster", Archived: true},
		{ID: 12, Name: "Unlisted mug"},
	}

	counterRepo := &stubCounterRepo{
		getCounterByID: func(int64) (*models.Counter, error) { return counter, nil },
	}
	userRepo := &stubUserRepo{
		getUserByID: func(int64) (*models.User, error) { return buyer, nil },
	}
	productRepo := &stubProductRepo{
		getProductsForCounter: func(int64) ([]models.Product, error) { return products, nil },
	}
	svc := NewCatalogService(productRepo, counterRepo, userRepo, &stubPermanencyRepo{}, testSubscribersGroupID, stubStore{})

	eligible, err := svc.ProductsFor(1, 5)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, int64(10), eligible[0].ID)
	assert.True(t, eligible[0].Price.Equal(decimal.NewFromFloat(1.00)))
}

func TestProductsForBarmanOnShiftGetsSpecialPrice(t *testing.T) {
	counter := &models.Counter{ID: 1, Type: models.CounterTypeBar, ProductIDs: []int64{10}}
	counterRepo := &stubCounterRepo{
		getCounterByID: func(int64) (*models.Counter, error) { return counter, nil },
	}
	userRepo := &stubUserRepo{
		getUserByID: func(int64) (*models.User, error) { return &models.User{ID: 5}, nil },
	}
	productRepo := &stubProductRepo{
		getProductsForCounter: func(int64) ([]models.Product, error) {
			return []models.Product{
				{ID: 10, Name: "Beer", SellingPrice: decimal.NewFromFloat(2.00), SpecialSellingPrice: decimal.NewFromFloat(1.20)},
			}, nil
		},
	}
	permanencyRepo := &stubPermanencyRepo{
		getOpenByCounterAndUser: func(counterID, userID int64) (*models.Permanency, error) {
			return &models.Permanency{ID: 1, CounterID: counterID, UserID: userID}, nil
		},
	}
	svc := NewCatalogService(productRepo, counterRepo, userRepo, permanencyRepo, testSubscribersGroupID, stubStore{})

	eligible, err := svc.ProductsFor(1, 5)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.True(t, eligible[0].Price.Equal(decimal.NewFromFloat(1.20)))
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestCatalog(nil)

	_, err := svc.CreateProduct(&models.Product{Name: "Bad", SellingPrice: decimal.NewFromInt(-1)}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(&models.Product{Name: "Bad", Code: "WAY-TOO-LONG-PRODUCT-CODE"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
