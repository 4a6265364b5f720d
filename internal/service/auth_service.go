package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/shortcourse-api/internal/models"
	appErrors "github.com/noah-isme/shortcourse-api/pkg/errors"
)

type staffLookup interface {
	Lookup(id string) (models.StaffMember, bool)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	// StaffPassword is the shared password every directory member logs in with.
	StaffPassword string
}

// AuthService checks staff credentials and issues access tokens.
type AuthService struct {
	staff        staffLookup
	validator    *validator.Validate
	logger       *zap.Logger
	config       AuthConfig
	passwordHash []byte
	now          func() time.Time
}

// NewAuthService constructs an AuthService instance. The shared password is hashed once here.
func NewAuthService(staff staffLookup, validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if staff == nil {
		staff = DefaultStaffDirectory()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}
	if config.StaffPassword == "" {
		return nil, fmt.Errorf("staff password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(config.StaffPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash staff password: %w", err)
	}
	config.StaffPassword = ""
	return &AuthService{
		staff:        staff,
		validator:    validate,
		logger:       logger,
		config:       config,
		passwordHash: hash,
		now:          time.Now,
	}, nil
}

// Login authenticates a staff member and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	member, ok := s.staff.Lookup(strings.TrimSpace(req.StaffID))
	if !ok {
		s.logger.Info("login rejected", zap.String("staff_id", req.StaffID), zap.String("reason", "unknown staff"))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.logger.Info("login rejected", zap.String("staff_id", member.ID), zap.String("reason", "password mismatch"))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	accessToken, issuedAt, err := s.generateAccessToken(member)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Info("staff logged in", zap.String("staff_id", member.ID), zap.String("role", string(member.Role)))

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Staff:       member,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if _, known := s.staff.Lookup(claims.StaffID); !known {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token subject is not a staff member")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(member models.StaffMember) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		StaffID: member.ID,
		Name:    member.Name,
		Role:    member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   member.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
