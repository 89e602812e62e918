package models

import "time"

// User represents a member of the association.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username" db:"username"`
	PasswordHash  string     `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	Email         *string    `json:"email,omitempty" db:"email"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	NickName      *string    `json:"nick_name,omitempty" db:"nick_name"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	BannedAlcohol bool       `json:"banned_alcohol" db:"banned_alcohol"`
	BannedCounter bool       `json:"banned_counter" db:"banned_counter"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	Groups        []Group    `json:"groups,omitempty"` // For joining with Group
}

// DisplayName returns the nickname when the user has one, else "First Last".
func (u *User) DisplayName() string {
	if u.NickName != nil && *u.NickName != "" {
		return *u.NickName
	}
	return u.FirstName + " " + u.LastName
}

// Age returns the age of the user in full years at the given instant.
// Users without a known birth date have an age of -1 so that any
// `limit_age > 0` check fails.
func (u *User) Age(now time.Time) int {
	if u.DateOfBirth == nil {
		return -1
	}
	days := now.Sub(*u.DateOfBirth).Hours() / 24
	return int(days / 365.25)
}

// Group represents a permission/buying group of the association.
type Group struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
}

// Subscription represents a paid membership period of a user.
type Subscription struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id" db:"user_id"`
	SubscriptionStart time.Time `json:"subscription_start" db:"subscription_start"`
	SubscriptionEnd   time.Time `json:"subscription_end" db:"subscription_end"`
	PaymentMethod     string    `json:"payment_method" db:"payment_method"`
}

// Credentials for login request
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CounterLoginPayload is used by a barman to start a permanency on a
// physical counter. The counter token is printed on the counter screen.
type CounterLoginPayload struct {
	CounterToken string `json:"counter_token" binding:"required"`
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
}
