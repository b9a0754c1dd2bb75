package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"marketmapper/apperr"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "auth: invalid email or password")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = apperr.New(apperr.ErrValidation, "auth: password must be at least 8 characters")
	// ErrMissingFields signals an incomplete registration.
	ErrMissingFields = apperr.New(apperr.ErrValidation, "auth: username and email are required")
	// ErrInvalidToken signals a token that cannot be trusted.
	ErrInvalidToken = apperr.New(apperr.ErrUnauthenticated, "auth: invalid token")
	// ErrInvalidUsername signals an empty or oversized display name.
	ErrInvalidUsername = apperr.New(apperr.ErrValidation, "auth: username must be 1-64 characters")
)

const tokenTTL = 24 * time.Hour

// Service handles authentication and user directory logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
	now       func() time.Time
}

// LoginResult bundles the token and domain user returned after a successful login.
type LoginResult struct {
	Token string
	User  User
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// Register creates a new user account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (LoginResult, error) {
	if len(req.Password) < 8 {
		return LoginResult{}, ErrWeakPassword
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || username == "" {
		return LoginResult{}, ErrMissingFields
	}
	if len(username) > 64 {
		return LoginResult{}, ErrInvalidUsername
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return LoginResult{}, err
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// Login authenticates a user and returns a JWT token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if user.PasswordHash == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{
		Token: token,
		User:  user,
	}, nil
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// Summaries resolves ids to public user views.
func (s *Service) Summaries(ctx context.Context, userIDs []string) ([]Summary, error) {
	return s.repo.Summaries(ctx, userIDs)
}

// Search returns up to limit users whose username contains term.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]Summary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Summary{}, nil
	}
	return s.repo.Search(ctx, term, limit)
}

// UpdateUsername changes the acting user's display name.
func (s *Service) UpdateUsername(ctx context.Context, userID, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 64 {
		return User{}, ErrInvalidUsername
	}
	return s.repo.UpdateUsername(ctx, userID, username)
}

// VerifyToken validates a JWT token and returns the user ID.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			return "", ErrInvalidToken
		}
		return userID, nil
	}

	return "", ErrInvalidToken
}

// generateToken creates a JWT token for the user.
func (s *Service) generateToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
