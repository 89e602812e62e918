package services

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// PermanencyService drives the seller check-in/out state machine. A seller
// may operate a counter only while holding an open permanency on it.
type PermanencyService interface {
	// Open starts a shift. It is rejected when the seller is not in the
	// counter's seller list or already holds an open shift anywhere.
	Open(counterID, sellerID int64) (*models.Permanency, error)
	// CounterLogin authenticates a barman against a physical counter token
	// and opens their shift.
	CounterLogin(counterToken, username, password string) (*models.Permanency, error)
	Close(counterID, sellerID int64, now time.Time) error
	// Sweep force-closes shifts inactive for longer than the configured
	// threshold, setting end = activity. Returns the number of closed rows.
	Sweep(now time.Time) (int64, error)
	// Barmen lists the sellers currently on shift at a counter.
	Barmen(counterID int64) ([]models.Permanency, error)
	CounterIsOpen(counterID int64) (bool, error)
}

type permanencyService struct {
	permanencyRepo repositories.PermanencyRepository
	counterRepo    repositories.CounterRepository
	userRepo       repositories.UserRepository
	inactivity     time.Duration
	db             repositories.Store
}

// NewPermanencyService creates a new instance of PermanencyService.
func NewPermanencyService(
	pr repositories.PermanencyRepository,
	cr repositories.CounterRepository,
	ur repositories.UserRepository,
	inactivity time.Duration,
	db repositories.Store,
) PermanencyService {
	return &permanencyService{
		permanencyRepo: pr,
		counterRepo:    cr,
		userRepo:       ur,
		inactivity:     inactivity,
		db:             db,
	}
}

func (s *permanencyService) Open(counterID, sellerID int64) (*models.Permanency, error) {
	counter, err := s.counterRepo.GetCounterByID(counterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: counter %d", ErrValidation, counterID)
		}
		return nil, fmt.Errorf("loading counter %d: %w", counterID, err)
	}
	if counter.Type == models.CounterTypeEboutic {
		return nil, fmt.Errorf("%w: no permanencies on the e-shop counter", ErrValidation)
	}
	if !counter.HasSeller(sellerID) {
		return nil, ErrNotAuthorized
	}

	_, err = s.permanencyRepo.GetOpenByUser(sellerID)
	if err == nil {
		return nil, ErrPermanencyAlreadyOpen
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("checking open permanency of seller %d: %w", sellerID, err)
	}

	now := time.Now()
	permanency := &models.Permanency{
		CounterID: counterID,
		UserID:    sellerID,
		Start:     now,
		Activity:  now,
	}
	if _, err := s.permanencyRepo.Create(s.db, permanency); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// lost the race against another login of the same seller
			return nil, ErrPermanencyAlreadyOpen
		}
		return nil, fmt.Errorf("opening permanency: %w", err)
	}
	return permanency, nil
}

func (s *permanencyService) CounterLogin(counterToken, username, password string) (*models.Permanency, error) {
	counter, err := s.counterRepo.GetCounterByToken(counterToken)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading counter by token: %w", err)
	}

	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotAuthenticated
	}

	permanency, err := s.Open(counter.ID, user.ID)
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Barman logged in to counter", map[string]interface{}{
		"counter_id": counter.ID,
		"user_id":    user.ID,
	})
	return permanency, nil
}

func (s *permanencyService) Close(counterID, sellerID int64, now time.Time) error {
	permanency, err := s.permanencyRepo.GetOpenByCounterAndUser(counterID, sellerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPermanencyClosed
		}
		return fmt.Errorf("loading open permanency: %w", err)
	}
	if err := s.permanencyRepo.Close(s.db, permanency.ID, now); err != nil {
		return fmt.Errorf("closing permanency %d: %w", permanency.ID, err)
	}
	return nil
}

func (s *permanencyService) Sweep(now time.Time) (int64, error) {
	closed, err := s.permanencyRepo.Sweep(now.Add(-s.inactivity))
	if err != nil {
		return 0, fmt.Errorf("sweeping inactive permanencies: %w", err)
	}
	if closed > 0 {
		utils.LogInfo("Swept inactive permanencies", map[string]interface{}{"closed": closed})
	}
	return closed, nil
}

func (s *permanencyService) Barmen(counterID int64) ([]models.Permanency, error) {
	return s.permanencyRepo.ListOpenByCounter(counterID)
}

func (s *permanencyService) CounterIsOpen(counterID int64) (bool, error) {
	return s.permanencyRepo.CounterIsOpen(counterID)
}
