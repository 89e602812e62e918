package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/repositories"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// TokenPair bundles the access and refresh tokens returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService authenticates members and issues JWT tokens.
type AuthService interface {
	Login(credentials models.Credentials) (*models.User, *TokenPair, error)
	Refresh(refreshToken string) (*TokenPair, error)
	// CheckPassword verifies a username/password pair without issuing
	// tokens. The counter login path uses it together with the counter
	// token.
	CheckPassword(username, password string) (*models.User, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret []byte) AuthService {
	return &authService{userRepo: userRepo, jwtSecret: jwtSecret}
}

func (s *authService) CheckPassword(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	if !user.IsActive {
		return nil, ErrNotAuthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (s *authService) Login(credentials models.Credentials) (*models.User, *TokenPair, error) {
	user, err := s.CheckPassword(credentials.Username, credentials.Password)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := utils.GenerateAccessToken(s.jwtSecret, user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	refreshToken, err := utils.GenerateRefreshToken(s.jwtSecret, user.ID)
	if err != nil {
		return nil, nil, err
	}

	utils.LogInfo("User logged in", map[string]interface{}{"user_id": user.ID})
	return user, &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := utils.ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	user, err := s.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	if !user.IsActive {
		return nil, ErrNotAuthenticated
	}

	accessToken, err := utils.GenerateAccessToken(s.jwtSecret, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	newRefreshToken, err := utils.GenerateRefreshToken(s.jwtSecret, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}
