package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// PermanencyRepository defines the interface for permanency database
// operations. The partial unique index on (user_id) WHERE end IS NULL
// enforces the one-open-shift-per-seller invariant at the storage level.
type PermanencyRepository interface {
	Create(executor SQLExecutor, permanency *models.Permanency) (int64, error)
	GetOpenByUser(userID int64) (*models.Permanency, error)
	GetOpenByCounterAndUser(counterID, userID int64) (*models.Permanency, error)
	ListOpenByCounter(counterID int64) ([]models.Permanency, error)
	CounterIsOpen(counterID int64) (bool, error)
	Close(executor SQLExecutor, permanencyID int64, end time.Time) error
	// TouchActivity bumps the activity timestamp of every open shift at the
	// counter. Called on each sale and refill.
	TouchActivity(executor SQLExecutor, counterID int64, at time.Time) error
	// Sweep force-closes every open shift whose activity is older than the
	// cutoff, setting end = activity. Returns the number of closed shifts.
	Sweep(cutoff time.Time) (int64, error)
}

type permanencyRepository struct {
	db *sql.DB
}

// NewPermanencyRepository creates a new instance of PermanencyRepository.
func NewPermanencyRepository(db *sql.DB) PermanencyRepository {
	return &permanencyRepository{db: db}
}

const permanencyColumns = `id, counter_id, user_id, start, "end", activity`

func scanPermanency(s scanner) (*models.Permanency, error) {
	p := &models.Permanency{}
	err := s.Scan(&p.ID, &p.CounterID, &p.UserID, &p.Start, &p.End, &p.Activity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning permanency: %v", ErrDatabaseError, err)
	}
	return p, nil
}

func (r *permanencyRepository) Create(executor SQLExecutor, permanency *models.Permanency) (int64, error) {
	query := `INSERT INTO permanencies (counter_id, user_id, start, "end", activity)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := executor.QueryRow(query,
		permanency.CounterID, permanency.UserID, permanency.Start,
		permanency.End, permanency.Activity,
	).Scan(&permanency.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating permanency: %v", ErrDatabaseError, err)
	}
	return permanency.ID, nil
}

func (r *permanencyRepository) GetOpenByUser(userID int64) (*models.Permanency, error) {
	query := `SELECT ` + permanencyColumns + ` FROM permanencies WHERE user_id = $1 AND "end" IS NULL`
	return scanPermanency(r.db.QueryRow(query, userID))
}

func (r *permanencyRepository) GetOpenByCounterAndUser(counterID, userID int64) (*models.Permanency, error) {
	query := `SELECT ` + permanencyColumns + `
	          FROM permanencies
	          WHERE counter_id = $1 AND user_id = $2 AND "end" IS NULL`
	return scanPermanency(r.db.QueryRow(query, counterID, userID))
}

func (r *permanencyRepository) ListOpenByCounter(counterID int64) ([]models.Permanency, error) {
	query := `SELECT ` + permanencyColumns + `
	          FROM permanencies
	          WHERE counter_id = $1 AND "end" IS NULL
	          ORDER BY start`
	rows, err := r.db.Query(query, counterID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing open permanencies for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	defer rows.Close()

	var permanencies []models.Permanency
	for rows.Next() {
		p, err := scanPermanency(rows)
		if err != nil {
			return nil, err
		}
		permanencies = append(permanencies, *p)
	}
	return permanencies, rows.Err()
}

func (r *permanencyRepository) CounterIsOpen(counterID int64) (bool, error) {
	var open bool
	query := `SELECT EXISTS(SELECT 1 FROM permanencies WHERE counter_id = $1 AND "end" IS NULL)`
	if err := r.db.QueryRow(query, counterID).Scan(&open); err != nil {
		return false, fmt.Errorf("%w: checking counter %d openness: %v", ErrDatabaseError, counterID, err)
	}
	return open, nil
}

func (r *permanencyRepository) Close(executor SQLExecutor, permanencyID int64, end time.Time) error {
	res, err := executor.Exec(
		`UPDATE permanencies SET "end" = $1 WHERE id = $2 AND "end" IS NULL`, end, permanencyID)
	if err != nil {
		return fmt.Errorf("%w: closing permanency %d: %v", ErrDatabaseError, permanencyID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *permanencyRepository) TouchActivity(executor SQLExecutor, counterID int64, at time.Time) error {
	_, err := executor.Exec(
		`UPDATE permanencies SET activity = $1 WHERE counter_id = $2 AND "end" IS NULL`, at, counterID)
	if err != nil {
		return fmt.Errorf("%w: touching activity for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	return nil
}

func (r *permanencyRepository) Sweep(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(
		`UPDATE permanencies SET "end" = activity WHERE "end" IS NULL AND activity < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: sweeping permanencies: %v", ErrDatabaseError, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
