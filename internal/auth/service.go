package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kofiasante/kasuwa-backend/pkg/auth"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/db/models"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/security"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service handles registration, login and profile lookups.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	Location  string
	ClientIP  string
}

// LoginInput is the validated login payload.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// UserDTO is the account payload returned to clients. The password hash
// never leaves this package.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role"`
	Location    *string        `json:"location,omitempty"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuthResult pairs the issued token with the account it belongs to.
type AuthResult struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type service struct {
	repo      *Repository
	limiter   rateLimiter
	jwtCfg    config.JWTConfig
	pwCfg     config.PasswordConfig
	limitsCfg config.AuthRateLimitConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the auth service.
func NewService(
	repo *Repository,
	limiter rateLimiter,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
	limitsCfg config.AuthRateLimitConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("auth repository required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		limiter:   limiter,
		jwtCfg:    jwtCfg,
		pwCfg:     pwCfg,
		limitsCfg: limitsCfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

const minPasswordLength = 8

func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	role := enums.UserRoleBuyer
	if raw := strings.TrimSpace(input.Role); raw != "" {
		parsed, err := enums.ParseUserRole(raw)
		if err != nil || parsed == enums.UserRoleAdmin {
			// Admin accounts are provisioned out of band, never self-registered.
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer, seller or agent")
		}
		role = parsed
	}

	if err := s.allow(ctx, "register", email, input.ClientIP,
		int64(s.limitsCfg.RegisterEmailLimit), int64(s.limitsCfg.RegisterIPLimit), s.limitsCfg.RegisterWindow); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		IsActive:     true,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = &phone
	}
	if location := strings.TrimSpace(input.Location); location != "" {
		user.Location = &location
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": created.ID.String(),
		"role":    created.Role.String(),
	}), "user registered")

	return s.issue(created)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allow(ctx, "login", email, input.ClientIP,
		int64(s.limitsCfg.LoginEmailLimit), int64(s.limitsCfg.LoginIPLimit), s.limitsCfg.LoginWindow); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Same answer as a wrong password so emails cannot be probed.
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the timestamp is best effort.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "touch last login failed")
	} else {
		user.LastLoginAt = &now
	}

	return s.issue(user)
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(user)
	return &dto, nil
}

// allow applies the per-email and per-IP fixed windows. Redis being down
// fails open: locking every user out is worse than a brute-force window.
func (s *service) allow(ctx context.Context, action, email, clientIP string, emailLimit, ipLimit int64, window time.Duration) error {
	checks := []struct {
		scope string
		limit int64
	}{
		{scope: action + ":email:" + email, limit: emailLimit},
	}
	if clientIP != "" {
		checks = append(checks, struct {
			scope string
			limit int64
		}{scope: action + ":ip:" + clientIP, limit: ipLimit})
	}

	for _, check := range checks {
		if check.limit <= 0 {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, check.scope, check.limit, window)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "rate limiter unavailable")
			continue
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later")
		}
	}
	return nil
}

func (s *service) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &AuthResult{Token: token, User: toUserDTO(user)}, nil
}

func toUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        user.Role,
		Location:    user.Location,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
