package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

func newTestPermanency(
	permanencyRepo *stubPermanencyRepo,
	counterRepo *stubCounterRepo,
	userRepo *stubUserRepo,
) PermanencyService {
	if permanencyRepo == nil {
		permanencyRepo = &stubPermanencyRepo{}
	}
	if counterRepo == nil {
		counterRepo = &stubCounterRepo{}
	}
	if userRepo == nil {
		userRepo = &stubUserRepo{}
	}
	return NewPermanencyService(permanencyRepo, counterRepo, userRepo, 10*time.Minute, stubStore{})
}

func barCounterRepo(sellerIDs ...int64) *stubCounterRepo {
	return &stubCounterRepo{
		getCounterByID: func(id int64) (*models.Counter, error) {
			return &models.Counter{ID: id, Type: models.CounterTypeBar, SellerIDs: sellerIDs}, nil
		},
	}
}

func TestOpenPermanency(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		svc := newTestPermanency(nil, barCounterRepo(5), nil)

		permanency, err := svc.Open(1, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(1), permanency.CounterID)
		assert.Equal(t, int64(5), permanency.UserID)
		assert.False(t, permanency.Start.IsZero())
		assert.Equal(t, permanency.Start, permanency.Activity)
		assert.Nil(t, permanency.End)
	})

	t.Run("unknown counter", func(t *testing.T) {
		svc := newTestPermanency(nil, nil, nil)
		_, err := svc.Open(404, 5)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no permanencies on the e-shop counter", func(t *testing.T) {
		counterRepo := &stubCounterRepo{
			getCounterByID: func(id int64) (*models.Counter, error) {
				return &models.Counter{ID: id, Type: models.CounterTypeEboutic}, nil
			},
		}
		svc := newTestPermanency(nil, counterRepo, nil)
		_, err := svc.Open(1, 5)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("seller not in the counter list", func(t *testing.T) {
		svc := newTestPermanency(nil, barCounterRepo(7), nil)
		_, err := svc.Open(1, 5)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("seller already on shift somewhere", func(t *testing.T) {
		permanencyRepo := &stubPermanencyRepo{
			getOpenByUser: func(userID int64) (*models.Permanency, error) {
				return &models.Permanency{ID: 1, CounterID: 2, UserID: userID}, nil
			},
		}
		svc := newTestPermanency(permanencyRepo, barCounterRepo(5), nil)
		_, err := svc.Open(1, 5)
		assert.ErrorIs(t, err, ErrPermanencyAlreadyOpen)
	})

	t.Run("lost creation race", func(t *testing.T) {
		permanencyRepo := &stubPermanencyRepo{
			create: func(*models.Permanency) (int64, error) {
				return 0, repositories.ErrDuplicateKey
			},
		}
		svc := newTestPermanency(permanencyRepo, barCounterRepo(5), nil)
		_, err := svc.Open(1, 5)
		assert.ErrorIs(t, err, ErrPermanencyAlreadyOpen)
	})
}

func TestCounterLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	token := "deadbeef"
	counterRepo := &stubCounterRepo{
		getCounterByToken: func(got string) (*models.Counter, error) {
			if got != token {
				return nil, repositories.ErrNotFound
			}
			return &models.Counter{ID: 1, Type: models.CounterTypeBar, Token: &token, SellerIDs: []int64{5}}, nil
		},
		getCounterByID: func(id int64) (*models.Counter, error) {
			return &models.Counter{ID: id, Type: models.CounterTypeBar, SellerIDs: []int64{5}}, nil
		},
	}
	userRepo := &stubUserRepo{
		getUserByUsername: func(username string) (*models.User, error) {
			if username != "barman" {
				return nil, repositories.ErrNotFound
			}
			return &models.User{ID: 5, Username: "barman", PasswordHash: string(hash), IsActive: true}, nil
		},
	}

	t.Run("happy path", func(t *testing.T) {
		svc := newTestPermanency(nil, counterRepo, userRepo)
		permanency, err := svc.CounterLogin(token, "barman", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, int64(5), permanency.UserID)
	})

	t.Run("bad token", func(t *testing.T) {
		svc := newTestPermanency(nil, counterRepo, userRepo)
		_, err := svc.CounterLogin("wrong", "barman", "hunter2")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := newTestPermanency(nil, counterRepo, userRepo)
		_, err := svc.CounterLogin(token, "ghost", "hunter2")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newTestPermanency(nil, counterRepo, userRepo)
		_, err := svc.CounterLogin(token, "barman", "letmein")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestClosePermanency(t *testing.T) {
	t.Run("no open shift", func(t *testing.T) {
		svc := newTestPermanency(nil, nil, nil)
		err := svc.Close(1, 5, time.Now())
		assert.ErrorIs(t, err, ErrPermanencyClosed)
	})

	t.Run("closes the open shift", func(t *testing.T) {
		permanencyRepo := &stubPermanencyRepo{
			getOpenByCounterAndUser: func(counterID, userID int64) (*models.Permanency, error) {
				return &models.Permanency{ID: 42, CounterID: counterID, UserID: userID}, nil
			},
		}
		svc := newTestPermanency(permanencyRepo, nil, nil)
		assert.NoError(t, svc.Close(1, 5, time.Now()))
	})
}

func TestSweepUsesInactivityCutoff(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	permanencyRepo := &stubPermanencyRepo{
		sweep: func(cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 2, nil
		},
	}
	svc := newTestPermanency(permanencyRepo, nil, nil)

	closed, err := svc.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), closed)
	assert.Equal(t, now.Add(-10*time.Minute), gotCutoff)
}
