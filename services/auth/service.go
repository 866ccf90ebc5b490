package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the JWT claims carried by admin tokens
type Claims struct {
	IdentityID int64  `json:"identity_id"`
	Username   string `json:"username"`
	RoleID     int64  `json:"role_id"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token belongs to an administrator
func (c *Claims) IsAdmin() bool {
	return c.RoleID == models.RoleAdmin
}

// TokenPair is the result of a successful login
type TokenPair struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service handles password login and JWT issuance for the admin surface
type Service struct {
	identities repositories.IdentityRepository
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a new auth service
func NewService(identities repositories.IdentityRepository, cfg config.AuthConfig, logger *zap.Logger) *Service {
	return &Service{
		identities: identities,
		secret:     []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Login verifies the username and password and returns a signed token.
// A missing identity and a wrong password both come back as invalid
// credentials so the response does not reveal which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	identity, err := s.identities.GetActiveByUsername(ctx, username)
	if err != nil {
		return nil, services.Internal("failed to look up identity", err)
	}
	if identity == nil {
		return nil, services.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("password mismatch", zap.String("username", username))
		return nil, services.ErrInvalidCredentials
	}

	return s.issueToken(identity)
}

func (s *Service) issueToken(identity *models.Identity) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := &Claims{
		IdentityID: identity.ID,
		Username:   identity.Username,
		RoleID:     identity.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", identity.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, services.Internal("failed to sign token", err)
	}

	return &TokenPair{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies a token and returns its claims
func (s *Service) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, services.ErrInvalidToken
	}
	return claims, nil
}

// HashPassword hashes a password with the configured bcrypt cost
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", services.Internal("failed to hash password", err)
	}
	return string(hash), nil
}
