package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/users"
	pkgauth "github.com/rentiva/rentiva-backend/pkg/auth"
	"github.com/rentiva/rentiva-backend/pkg/auth/session"
	"github.com/rentiva/rentiva-backend/pkg/config"
	dbpkg "github.com/rentiva/rentiva-backend/pkg/db"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/security"
)

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles registration, login, token refresh, and logout.
type Service struct {
	repo      users.Repository
	tx        txRunner
	sessions  sessionManager
	limiter   rateLimiter
	jwtCfg    config.JWTConfig
	pwCfg     config.PasswordConfig
	limitCfg  config.AuthRateLimitConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the auth service.
func NewService(repo users.Repository, tx txRunner, sessions sessionManager, limiter rateLimiter, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, limitCfg config.AuthRateLimitConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		sessions: sessions,
		limiter:  limiter,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		limitCfg: limitCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// RegisterCustomer creates a customer account and signs it in.
func (s *Service) RegisterCustomer(ctx context.Context, input RegisterInput) (*Session, error) {
	if err := s.checkRegisterLimits(ctx, input.Email); err != nil {
		return nil, err
	}
	user, err := s.buildUser(input, enums.UserRoleCustomer, nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, creationError(err)
	}
	return s.issueSession(ctx, user)
}

// RegisterVendor creates the vendor organization and its owner account in one
// transaction, then signs the owner in.
func (s *Service) RegisterVendor(ctx context.Context, input RegisterVendorInput) (*Session, error) {
	if err := s.checkRegisterLimits(ctx, input.Email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.VendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}

	contactEmail := strings.ToLower(strings.TrimSpace(input.ContactEmail))
	if contactEmail == "" {
		contactEmail = strings.ToLower(strings.TrimSpace(input.Email))
	}

	vendor := &models.Vendor{
		Name:         strings.TrimSpace(input.VendorName),
		Slug:         newSlug(input.VendorName),
		ContactEmail: contactEmail,
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     true,
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateVendor(ctx, vendor); err != nil {
			return creationError(err)
		}
		built, err := s.buildUser(input.RegisterInput, enums.UserRoleVendor, &vendor.ID)
		if err != nil {
			return err
		}
		if _, err := txRepo.CreateUser(ctx, built); err != nil {
			return creationError(err)
		}
		user = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) buildUser(input RegisterInput, role enums.UserRole, vendorID *uuid.UUID) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailPattern.MatchString(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "hashing password")
	}

	return &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         role,
		VendorID:     vendorID,
		IsActive:     true,
	}, nil
}

func creationError(err error) error {
	if dbpkg.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(err, pkgerrors.CodeConflict, "account already exists")
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating account")
}

// Login verifies the credentials and issues a token pair. Failures are rate
// limited per email and per source IP.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.checkLoginLimits(ctx, email, input.IP); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "recording last login failed")
	}
	user.LastLoginAt = &now

	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		VendorID: user.VendorID,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "minting access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "creating session")
	}

	return &Session{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtCfg.ExpirationMinutes) * 60,
	}, nil
}

// Refresh rotates the refresh token and mints a fresh access token. The old
// access token may be expired; its signature must still verify.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "rotating session")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUnauthorized, "account no longer exists")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is disabled")
	}

	newAccessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		VendorID: user.VendorID,
		JTI:      newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "minting access token")
	}

	return &Session{
		User:         user,
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int64(s.jwtCfg.ExpirationMinutes) * 60,
	}, nil
}

// Logout revokes the session tied to the presented access token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "revoking session")
	}
	return nil
}

// Profile loads the authenticated user.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading user")
	}
	return user, nil
}

func (s *Service) checkLoginLimits(ctx context.Context, email, ip string) error {
	if err := s.allow(ctx, "login:email:"+email, int64(s.limitCfg.LoginEmailLimit), s.limitCfg.LoginWindow); err != nil {
		return err
	}
	if ip != "" {
		return s.allow(ctx, "login:ip:"+ip, int64(s.limitCfg.LoginIPLimit), s.limitCfg.LoginWindow)
	}
	return nil
}

func (s *Service) checkRegisterLimits(ctx context.Context, email string) error {
	scope := "register:email:" + strings.ToLower(strings.TrimSpace(email))
	return s.allow(ctx, scope, int64(s.limitCfg.RegisterEmailLimit), s.limitCfg.RegisterWindow)
}

func (s *Service) allow(ctx context.Context, scope string, limit int64, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}
	ok, _, err := s.limiter.FixedWindowAllow(ctx, scope, limit, window)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "rate limit check failed, allowing request")
		}
		return nil
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, slow down")
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func newSlug(name string) string {
	base := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "vendor"
	}
	return base + "-" + uuid.NewString()[:8]
}
