package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

func TestFormatAccountID(t *testing.T) {
	tests := []struct {
		number int64
		want   string
	}{
		{0, "0A"},
		{1, "1B"},
		{22, "22Y"},
		{23, "23A"},
		{9999, "9999T"},   // 9999 mod 23 = 17
		{10000, "10000U"}, // 10000 mod 23 = 18
		{12345, "12345T"}, // 12345 mod 23 = 17
		{100000, "100000V"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAccountID(tt.number))
	}
}

func TestFormatAccountIDSkipsAmbiguousLetters(t *testing.T) {
	for n := int64(0); n < 23; n++ {
		id := FormatAccountID(n)
		letter := id[len(id)-1]
		assert.NotEqual(t, byte('I'), letter)
		assert.NotEqual(t, byte('O'), letter)
	}
}

func TestOpenAccountReturnsExistingAccount(t *testing.T) {
	existing := &models.Customer{UserID: 7, AccountID: "10000U", Amount: decimal.NewFromInt(5)}
	customerRepo := &stubCustomerRepo{
		getByUserID: func(userID int64) (*models.Customer, error) {
			require.Equal(t, int64(7), userID)
			return existing, nil
		},
	}
	svc := NewCustomerService(customerRepo, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	customer, err := svc.OpenAccount(7)
	require.NoError(t, err)
	assert.Same(t, existing, customer)
}

func TestOpenAccountStartsNumberingAtTenThousand(t *testing.T) {
	var created *models.Customer
	customerRepo := &stubCustomerRepo{
		maxAccountNumber: func() (int64, error) { return 0, nil },
		create: func(customer *models.Customer) error {
			created = customer
			return nil
		},
	}
	svc := NewCustomerService(customerRepo, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	customer, err := svc.OpenAccount(42)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "10000U", customer.AccountID)
	assert.Equal(t, int64(42), customer.UserID)
	assert.True(t, customer.Amount.IsZero())
}

func TestOpenAccountIncrementsMaxNumber(t *testing.T) {
	customerRepo := &stubCustomerRepo{
		maxAccountNumber: func() (int64, error) { return 12344, nil },
	}
	svc := NewCustomerService(customerRepo, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	customer, err := svc.OpenAccount(42)
	require.NoError(t, err)
	assert.Equal(t, "12345T", customer.AccountID)
}

func TestOpenAccountRetriesOnDuplicateAccountID(t *testing.T) {
	attempts := 0
	customerRepo := &stubCustomerRepo{
		maxAccountNumber: func() (int64, error) { return 9999, nil },
		create: func(customer *models.Customer) error {
			attempts++
			if attempts == 1 {
				return repositories.ErrDuplicateKey
			}
			return nil
		},
	}
	svc := NewCustomerService(customerRepo, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	customer, err := svc.OpenAccount(42)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	// second attempt takes the next number, 10001
	assert.Equal(t, FormatAccountID(10001), customer.AccountID)
}

func TestGetCustomerNotFound(t *testing.T) {
	svc := NewCustomerService(&stubCustomerRepo{}, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	_, err := svc.GetCustomer(99)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestBalance(t *testing.T) {
	customerRepo := &stubCustomerRepo{
		getByUserID: func(int64) (*models.Customer, error) {
			return &models.Customer{UserID: 1, Amount: decimal.NewFromFloat(13.37)}, nil
		},
	}
	svc := NewCustomerService(customerRepo, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	balance, err := svc.Balance(1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(13.37)))
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := NewCustomerService(&stubCustomerRepo{}, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	_, err := svc.Credit(1, decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Credit(1, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	svc := NewCustomerService(&stubCustomerRepo{}, &stubLedgerRepo{}, &stubUserRepo{}, stubStore{})

	_, err := svc.Debit(1, decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDebitLockedRefusesNegativeBalance(t *testing.T) {
	customerRepo := &stubCustomerRepo{
		getForUpdate: func(int64) (*models.Customer, error) {
			return &models.Customer{UserID: 1, Amount: decimal.NewFromInt(10)}, nil
		},
	}

	_, err := debitLocked(nil, customerRepo, 1, decimal.NewFromFloat(10.01))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestDebitLockedAllowsExactBalance(t *testing.T) {
	var updated decimal.Decimal
	customerRepo := &stubCustomerRepo{
		getForUpdate: func(int64) (*models.Customer, error) {
			return &models.Customer{UserID: 1, Amount: decimal.NewFromInt(10)}, nil
		},
		updateAmount: func(_ int64, amount decimal.Decimal) error {
			updated = amount
			return nil
		},
	}

	customer, err := debitLocked(nil, customerRepo, 1, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, customer.Amount.IsZero())
	assert.True(t, updated.IsZero())
}

func TestCreditLockedAddsAmount(t *testing.T) {
	customerRepo := &stubCustomerRepo{
		getForUpdate: func(int64) (*models.Customer, error) {
			return &models.Customer{UserID: 1, Amount: decimal.NewFromFloat(2.50)}, nil
		},
	}

	customer, err := creditLocked(nil, customerRepo, 1, decimal.NewFromFloat(7.50))
	require.NoError(t, err)
	assert.True(t, customer.Amount.Equal(decimal.NewFromInt(10)))
}

func TestCreditLockedUnknownCustomer(t *testing.T) {
	_, err := creditLocked(nil, &stubCustomerRepo{}, 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestStatementMergesAndSortsEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledgerRepo := &stubLedgerRepo{
		getRefillingsByCustomer: func(int64, int) ([]models.Refilling, error) {
			return []models.Refilling{
				{Date: base, Amount: decimal.NewFromInt(20), PaymentMethod: models.PaymentMethodCash},
			}, nil
		},
		getSellingsByCustomer: func(int64, int) ([]models.Selling, error) {
			return []models.Selling{
				{
					Date:          base.Add(time.Hour),
					Label:         "Chips",
					Quantity:      2,
					UnitPrice:     decimal.NewFromFloat(1.50),
					PaymentMethod: models.PaymentMethodSithAccount,
				},
				{
					Date:          base.Add(2 * time.Hour),
					Label:         "T-shirt",
					Quantity:      1,
					UnitPrice:     decimal.NewFromInt(15),
					PaymentMethod: models.PaymentMethodCard,
				},
			}, nil
		},
	}
	svc := NewCustomerService(&stubCustomerRepo{}, ledgerRepo, &stubUserRepo{}, stubStore{})

	entries, err := svc.Statement(1, 50)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, "1 x T-shirt", entries[0].Label)
	assert.Equal(t, "2 x Chips", entries[1].Label)
	assert.Equal(t, "Refilling (CASH)", entries[2].Label)

	// account-paid sellings are negated, card sellings are not
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(15)))
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(-3)))
	assert.True(t, entries[2].Amount.Equal(decimal.NewFromInt(20)))
}

func TestStatementTruncatesToLimit(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledgerRepo := &stubLedgerRepo{
		getSellingsByCustomer: func(_ int64, limit int) ([]models.Selling, error) {
			sellings := make([]models.Selling, limit)
			for i := range sellings {
				sellings[i] = models.Selling{
					Date:          base.Add(time.Duration(i) * time.Minute),
					Label:         "Coffee",
					Quantity:      1,
					UnitPrice:     decimal.NewFromFloat(0.50),
					PaymentMethod: models.PaymentMethodSithAccount,
				}
			}
			return sellings, nil
		},
		getRefillingsByCustomer: func(int64, int) ([]models.Refilling, error) {
			return []models.Refilling{{Date: base, Amount: decimal.NewFromInt(10)}}, nil
		},
	}
	svc := NewCustomerService(&stubCustomerRepo{}, ledgerRepo, &stubUserRepo{}, stubStore{})

	entries, err := svc.Statement(1, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestCanBuy(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sub  *models.Subscription
		err  error
		want bool
	}{
		{
			name: "current subscription",
			sub:  &models.Subscription{SubscriptionEnd: now.AddDate(0, 3, 0)},
			want: true,
		},
		{
			name: "lapsed less than 90 days ago",
			sub:  &models.Subscription{SubscriptionEnd: now.AddDate(0, 0, -89)},
			want: true,
		},
		{
			name: "lapsed more than 90 days ago",
			sub:  &models.Subscription{SubscriptionEnd: now.AddDate(0, 0, -91)},
			want: false,
		},
		{
			name: "never subscribed",
			err:  repositories.ErrNotFound,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &stubUserRepo{
				getLatestSubscription: func(int64) (*models.Subscription, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return tt.sub, nil
				},
			}
			svc := NewCustomerService(&stubCustomerRepo{}, &stubLedgerRepo{}, userRepo, stubStore{})

			canBuy, err := svc.CanBuy(1, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, canBuy)
		})
	}
}

func TestCanBuyPropagatesRepositoryError(t *testing.T) {
	boom := errors.New("connection reset")
	userRepo := &stubUserRepo{
		getLatestSubscription: func(int64) (*models.Subscription, error) { return nil, boom },
	}
	svc := NewCustomerService(&stubCustomerRepo{}, &stubLedgerRepo{}, userRepo, stubStore{})

	_, err := svc.CanBuy(1, time.Now())
	assert.ErrorIs(t, err, boom)
}
