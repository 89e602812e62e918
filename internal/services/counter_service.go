package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
)

// CounterService manages the sales stations themselves: creation, the
// product and seller lists, and the physical login tokens.
type CounterService interface {
	GetCounters() ([]models.Counter, error)
	GetCounter(counterID int64) (*models.Counter, error)
	CreateCounter(counter *models.Counter) (*models.Counter, error)
	UpdateCounter(counter *models.Counter) error
	// RotateToken generates a fresh login token for a physical counter and
	// returns it. The previous token stops working immediately.
	RotateToken(counterID int64) (string, error)
	SetProducts(counterID int64, productIDs []int64) error
	SetSellers(counterID int64, sellerIDs []int64) error
}

type counterService struct {
	counterRepo repositories.CounterRepository
	db          repositories.Store
}

// NewCounterService creates a new instance of CounterService.
func NewCounterService(counterRepo repositories.CounterRepository, db repositories.Store) CounterService {
	return &counterService{counterRepo: counterRepo, db: db}
}

func (s *counterService) GetCounters() ([]models.Counter, error) {
	return s.counterRepo.GetCounters()
}

func (s *counterService) GetCounter(counterID int64) (*models.Counter, error) {
	counter, err := s.counterRepo.GetCounterByID(counterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: counter %d", ErrValidation, counterID)
		}
		return nil, err
	}
	return counter, nil
}

func (s *counterService) CreateCounter(counter *models.Counter) (*models.Counter, error) {
	switch counter.Type {
	case models.CounterTypeBar, models.CounterTypeOffice, models.CounterTypeEboutic:
	default:
		return nil, fmt.Errorf("%w: unknown counter type %q", ErrValidation, counter.Type)
	}
	if _, err := s.counterRepo.CreateCounter(s.db, counter); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// only one e-shop counter may exist
			return nil, fmt.Errorf("%w: an EBOUTIC counter already exists", ErrValidation)
		}
		return nil, err
	}
	return counter, nil
}

func (s *counterService) UpdateCounter(counter *models.Counter) error {
	return s.counterRepo.UpdateCounter(s.db, counter)
}

func (s *counterService) RotateToken(counterID int64) (string, error) {
	counter, err := s.GetCounter(counterID)
	if err != nil {
		return "", err
	}
	if counter.Type == models.CounterTypeEboutic {
		return "", fmt.Errorf("%w: the e-shop counter has no login token", ErrValidation)
	}

	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating counter token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.counterRepo.SetCounterToken(s.db, counterID, token); err != nil {
		return "", err
	}
	return token, nil
}

func (s *counterService) SetProducts(counterID int64, productIDs []int64) error {
	if _, err := s.GetCounter(counterID); err != nil {
		return err
	}
	return s.counterRepo.SetProducts(s.db, counterID, productIDs)
}

func (s *counterService) SetSellers(counterID int64, sellerIDs []int64) error {
	if _, err := s.GetCounter(counterID); err != nil {
		return err
	}
	return s.counterRepo.SetSellers(s.db, counterID, sellerIDs)
}
