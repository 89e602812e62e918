package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// CounterRepository defines the interface for counter database operations.
type CounterRepository interface {
	GetCounterByID(counterID int64) (*models.Counter, error)
	GetCounterByToken(token string) (*models.Counter, error)
	// GetEbouticCounter returns the one EBOUTIC counter of the association.
	GetEbouticCounter() (*models.Counter, error)
	GetCounters() ([]models.Counter, error)
	CreateCounter(executor SQLExecutor, counter *models.Counter) (int64, error)
	UpdateCounter(executor SQLExecutor, counter *models.Counter) error
	SetCounterToken(executor SQLExecutor, counterID int64, token string) error
	SetProducts(executor SQLExecutor, counterID int64, productIDs []int64) error
	SetSellers(executor SQLExecutor, counterID int64, sellerIDs []int64) error
}

type counterRepository struct {
	db *sql.DB
}

// NewCounterRepository creates a new instance of CounterRepository.
func NewCounterRepository(db *sql.DB) CounterRepository {
	return &counterRepository{db: db}
}

const counterColumns = `id, name, club_id, type, token, created_at, updated_at`

func scanCounter(s scanner) (*models.Counter, error) {
	counter := &models.Counter{}
	err := s.Scan(
		&counter.ID, &counter.Name, &counter.ClubID, &counter.Type,
		&counter.Token, &counter.CreatedAt, &counter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning counter: %v", ErrDatabaseError, err)
	}
	return counter, nil
}

func (r *counterRepository) loadRelations(counter *models.Counter) error {
	rows, err := r.db.Query(`SELECT product_id FROM counter_products WHERE counter_id = $1`, counter.ID)
	if err != nil {
		return fmt.Errorf("%w: getting counter products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("%w: scanning counter product: %v", ErrDatabaseError, err)
		}
		counter.ProductIDs = append(counter.ProductIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterating counter products: %v", ErrDatabaseError, err)
	}

	sellers, err := r.db.Query(`SELECT user_id FROM counter_sellers WHERE counter_id = $1`, counter.ID)
	if err != nil {
		return fmt.Errorf("%w: getting counter sellers: %v", ErrDatabaseError, err)
	}
	defer sellers.Close()
	for sellers.Next() {
		var id int64
		if err := sellers.Scan(&id); err != nil {
			return fmt.Errorf("%w: scanning counter seller: %v", ErrDatabaseError, err)
		}
		counter.SellerIDs = append(counter.SellerIDs, id)
	}
	return sellers.Err()
}

func (r *counterRepository) GetCounterByID(counterID int64) (*models.Counter, error) {
	counter, err := scanCounter(r.db.QueryRow(
		`SELECT `+counterColumns+` FROM counters WHERE id = $1`, counterID))
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(counter); err != nil {
		return nil, err
	}
	return counter, nil
}

func (r *counterRepository) GetCounterByToken(token string) (*models.Counter, error) {
	counter, err := scanCounter(r.db.QueryRow(
		`SELECT `+counterColumns+` FROM counters WHERE token = $1`, token))
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(counter); err != nil {
		return nil, err
	}
	return counter, nil
}

func (r *counterRepository) GetEbouticCounter() (*models.Counter, error) {
	counter, err := scanCounter(r.db.QueryRow(
		`SELECT ` + counterColumns + ` FROM counters WHERE type = 'EBOUTIC'`))
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(counter); err != nil {
		return nil, err
	}
	return counter, nil
}

func (r *counterRepository) GetCounters() ([]models.Counter, error) {
	rows, err := r.db.Query(`SELECT ` + counterColumns + ` FROM counters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: getting counters: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var counters []models.Counter
	for rows.Next() {
		counter, err := scanCounter(rows)
		if err != nil {
			return nil, err
		}
		counters = append(counters, *counter)
	}
	return counters, rows.Err()
}

func (r *counterRepository) CreateCounter(executor SQLExecutor, counter *models.Counter) (int64, error) {
	query := `INSERT INTO counters (name, club_id, type, token, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	now := time.Now()
	counter.CreatedAt = now
	counter.UpdatedAt = now

	err := executor.QueryRow(query,
		counter.Name, counter.ClubID, counter.Type, counter.Token,
		counter.CreatedAt, counter.UpdatedAt,
	).Scan(&counter.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			// the partial unique index on type = 'EBOUTIC' guards the
			// one-eshop invariant
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating counter: %v", ErrDatabaseError, err)
	}
	return counter.ID, nil
}

func (r *counterRepository) UpdateCounter(executor SQLExecutor, counter *models.Counter) error {
	query := `UPDATE counters SET name = $1, club_id = $2, type = $3, updated_at = $4 WHERE id = $5`
	res, err := executor.Exec(query, counter.Name, counter.ClubID, counter.Type, time.Now(), counter.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("%w: updating counter %d: %v", ErrDatabaseError, counter.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *counterRepository) SetCounterToken(executor SQLExecutor, counterID int64, token string) error {
	res, err := executor.Exec(`UPDATE counters SET token = $1, updated_at = $2 WHERE id = $3`,
		token, time.Now(), counterID)
	if err != nil {
		return fmt.Errorf("%w: setting token for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *counterRepository) SetProducts(executor SQLExecutor, counterID int64, productIDs []int64) error {
	if _, err := executor.Exec(`DELETE FROM counter_products WHERE counter_id = $1`, counterID); err != nil {
		return fmt.Errorf("%w: clearing products for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	for _, productID := range productIDs {
		_, err := executor.Exec(
			`INSERT INTO counter_products (counter_id, product_id) VALUES ($1, $2)`,
			counterID, productID,
		)
		if err != nil {
			return fmt.Errorf("%w: adding product %d to counter %d: %v", ErrDatabaseError, productID, counterID, err)
		}
	}
	return nil
}

func (r *counterRepository) SetSellers(executor SQLExecutor, counterID int64, sellerIDs []int64) error {
	if _, err := executor.Exec(`DELETE FROM counter_sellers WHERE counter_id = $1`, counterID); err != nil {
		return fmt.Errorf("%w: clearing sellers for counter %d: %v", ErrDatabaseError, counterID, err)
	}
	for _, sellerID := range sellerIDs {
		_, err := executor.Exec(
			`INSERT INTO counter_sellers (counter_id, user_id) VALUES ($1, $2)`,
			counterID, sellerID,
		)
		if err != nil {
			return fmt.Errorf("%w: adding seller %d to counter %d: %v", ErrDatabaseError, sellerID, counterID, err)
		}
	}
	return nil
}
