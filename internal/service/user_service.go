package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// Default token lifetimes
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = domain.NewError(domain.ErrUnauthenticated, "invalid username/email or password")
	ErrInvalidToken       = domain.NewError(domain.ErrUnauthenticated, "invalid token")
	ErrTokenExpired       = domain.NewError(domain.ErrUnauthenticated, "refresh token expired")
)

// TokenConfig configures token signing and lifetimes
type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// RegisterVendorInput holds the fields of a vendor sign-up
type RegisterVendorInput struct {
	Email           string
	Username        string
	Password        string
	BusinessName    string
	BusinessAddress string
}

// RegisterCustomerInput holds the fields of a customer sign-up
type RegisterCustomerInput struct {
	Email           string
	Username        string
	Password        string
	ShippingAddress string
}

// Profile is a user together with its role-specific profile
type Profile struct {
	User     *domain.User
	Vendor   *domain.Vendor
	Customer *domain.Customer
}

// UserService defines the interface for identity business logic
type UserService interface {
	RegisterVendor(ctx context.Context, input RegisterVendorInput) (*domain.User, error)
	RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.User, error)
	Login(ctx context.Context, login, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	txm              repository.TxManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           TokenConfig
	logger           *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(
	txm repository.TxManager,
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens TokenConfig,
	logger *zap.Logger,
) UserService {
	if tokens.AccessExpiry <= 0 {
		tokens.AccessExpiry = AccessTokenExpiration
	}
	if tokens.RefreshExpiry <= 0 {
		tokens.RefreshExpiry = RefreshTokenExpiration
	}
	return &userService{
		txm:              txm,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		logger:           logger,
	}
}

// RegisterVendor creates a vendor account and its selling profile atomically
func (s *userService) RegisterVendor(ctx context.Context, input RegisterVendorInput) (*domain.User, error) {
	user, err := s.newUser(input.Email, input.Username, input.Password, domain.RoleVendor)
	if err != nil {
		return nil, err
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return repos.Users.CreateVendor(ctx, &domain.Vendor{
			UserID:          user.ID,
			BusinessName:    input.BusinessName,
			BusinessAddress: input.BusinessAddress,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Vendor registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// RegisterCustomer creates a customer account and its buying profile atomically
func (s *userService) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.User, error) {
	user, err := s.newUser(input.Email, input.Username, input.Password, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return repos.Users.CreateCustomer(ctx, &domain.Customer{
			UserID:          user.ID,
			ShippingAddress: input.ShippingAddress,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userService) newUser(email, username, password string, role domain.Role) (*domain.User, error) {
	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	return &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Login authenticates by email or username and returns JWT tokens
func (s *userService) Login(ctx context.Context, login, password string) (accessToken, refreshToken string, user *domain.User, err error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	user, err = s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of a user
func (s *userService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("All sessions revoked", zap.String("user_id", userID.String()))
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) || errors.Is(err, domain.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	newAccessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.tokens.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetProfile retrieves a user with the profile matching its role
func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	switch user.Role {
	case domain.RoleVendor:
		profile.Vendor, err = s.userRepo.FindVendor(ctx, userID)
	case domain.RoleCustomer:
		profile.Customer, err = s.userRepo.FindCustomer(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user ID and role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokens.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()
	now := time.Now()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: now.Add(s.tokens.RefreshExpiry),
		CreatedAt: now,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
