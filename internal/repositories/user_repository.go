package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	GetUserByID(userID int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	CreateUser(executor SQLExecutor, user *models.User) (int64, error)
	GetUserGroups(userID int64) ([]models.Group, error)
	IsInGroup(userID int64, groupID int64) (bool, error)
	GetLatestSubscription(userID int64) (*models.Subscription, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, password_hash, email, first_name, last_name, nick_name,
	                 date_of_birth, banned_alcohol, banned_counter, is_active, created_at, updated_at`

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	err := s.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FirstName,
		&user.LastName, &user.NickName, &user.DateOfBirth, &user.BannedAlcohol,
		&user.BannedCounter, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
	}
	return user, nil
}

func (r *userRepository) GetUserByID(userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(query, userID))
}

func (r *userRepository) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRow(query, username))
}

func (r *userRepository) CreateUser(executor SQLExecutor, user *models.User) (int64, error) {
	query := `INSERT INTO users
	            (username, password_hash, email, first_name, last_name, nick_name,
	             date_of_birth, banned_alcohol, banned_counter, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	err := executor.QueryRow(query,
		user.Username, user.PasswordHash, user.Email, user.FirstName, user.LastName,
		user.NickName, user.DateOfBirth, user.BannedAlcohol, user.BannedCounter,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if IsUniqueViolation(err) {
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return user.ID, nil
}

func (r *userRepository) GetUserGroups(userID int64) ([]models.Group, error) {
	query := `SELECT g.id, g.name, g.description
	          FROM groups g
	          JOIN user_groups ug ON ug.group_id = g.id
	          WHERE ug.user_id = $1
	          ORDER BY g.id`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting groups for user %d: %v", ErrDatabaseError, userID, err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, fmt.Errorf("%w: scanning group: %v", ErrDatabaseError, err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *userRepository) IsInGroup(userID int64, groupID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_groups WHERE user_id = $1 AND group_id = $2)`
	if err := r.db.QueryRow(query, userID, groupID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking group membership: %v", ErrDatabaseError, err)
	}
	return exists, nil
}

// GetLatestSubscription returns the subscription with the most recent end
// date, or ErrNotFound when the user never subscribed.
func (r *userRepository) GetLatestSubscription(userID int64) (*models.Subscription, error) {
	sub := &models.Subscription{}
	query := `SELECT id, user_id, subscription_start, subscription_end, payment_method
	          FROM subscriptions
	          WHERE user_id = $1
	          ORDER BY subscription_end DESC
	          LIMIT 1`
	err := r.db.QueryRow(query, userID).Scan(
		&sub.ID, &sub.UserID, &sub.SubscriptionStart, &sub.SubscriptionEnd, &sub.PaymentMethod,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting latest subscription for user %d: %v", ErrDatabaseError, userID, err)
	}
	return sub, nil
}
