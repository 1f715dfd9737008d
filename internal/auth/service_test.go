package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rentiva/rentiva-backend/internal/users"
	pkgauth "github.com/rentiva/rentiva-backend/pkg/auth"
	"github.com/rentiva/rentiva-backend/pkg/auth/session"
	"github.com/rentiva/rentiva-backend/pkg/config"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
)

type fakeSessions struct {
	tokens  map[string]string
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	f.tokens[newID] = token
	return newID, token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	f.revoked = append(f.revoked, accessID)
	return nil
}

type fakeLimiter struct {
	counts map[string]int64
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

type txRunnerStub struct{}

func (txRunnerStub) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-for-signing",
		Issuer:                 "rentiva-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 43200,
	}
}

func testLimitConfig() config.AuthRateLimitConfig {
	return config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    5,
		LoginIPLimit:       20,
		RegisterWindow:     5 * time.Minute,
		RegisterEmailLimit: 3,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Vendor{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newAuthService(t *testing.T) (*Service, *fakeSessions, *fakeLimiter) {
	t.Helper()
	sessions := newFakeSessions()
	limiter := &fakeLimiter{counts: map[string]int64{}}

	svc, err := NewService(
		users.NewRepository(openTestDB(t)),
		txRunnerStub{},
		sessions,
		limiter,
		testJWTConfig(),
		config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
		testLimitConfig(),
		nil,
	)
	require.NoError(t, err)
	return svc, sessions, limiter
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Asha",
		LastName:  "Rao",
	}
}

func TestRegisterCustomerAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)

	created, err := svc.RegisterCustomer(context.Background(), registerInput("asha@example.com"))
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleCustomer, created.User.Role)
	assert.NotEmpty(t, created.AccessToken)
	assert.NotEmpty(t, created.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), created.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleCustomer, claims.Role)

	logged, err := svc.Login(context.Background(), LoginInput{
		Email:    "Asha@Example.com",
		Password: "correct-horse",
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, logged.User.ID)
	require.NotNil(t, logged.User.LastLoginAt)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.RegisterCustomer(context.Background(), RegisterInput{
		Email: "not-an-email", Password: "correct-horse", FirstName: "A", LastName: "B",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.RegisterCustomer(context.Background(), RegisterInput{
		Email: "a@b.com", Password: "short", FirstName: "A", LastName: "B",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.RegisterCustomer(context.Background(), registerInput("dup@example.com"))
	require.NoError(t, err)

	_, err = svc.RegisterCustomer(context.Background(), registerInput("dup@example.com"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestRegisterVendorCreatesOrgAndOwner(t *testing.T) {
	svc, _, _ := newAuthService(t)

	created, err := svc.RegisterVendor(context.Background(), RegisterVendorInput{
		RegisterInput: registerInput("owner@toolshed.com"),
		VendorName:    "The Tool Shed",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleVendor, created.User.Role)
	require.NotNil(t, created.User.VendorID)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), created.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.VendorID)
	assert.Equal(t, *created.User.VendorID, *claims.VendorID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)
	_, err := svc.RegisterCustomer(context.Background(), registerInput("asha@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{
		Email: "asha@example.com", Password: "wrong-password",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginRateLimited(t *testing.T) {
	svc, _, _ := newAuthService(t)

	var lastErr error
	for i := 0; i < 6; i++ {
		_, lastErr = svc.Login(context.Background(), LoginInput{
			Email: "nobody@example.com", Password: "whatever-pw",
		})
	}
	require.Error(t, lastErr)
	assert.True(t, pkgerrors.HasCode(lastErr, pkgerrors.CodeRateLimit))
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, sessions, _ := newAuthService(t)
	created, err := svc.RegisterCustomer(context.Background(), registerInput("asha@example.com"))
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), created.AccessToken, created.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, created.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// the old pair is spent
	_, err = svc.Refresh(context.Background(), created.AccessToken, created.RefreshToken)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	assert.Len(t, sessions.tokens, 1)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions, _ := newAuthService(t)
	created, err := svc.RegisterCustomer(context.Background(), registerInput("asha@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), created.AccessToken))
	assert.Empty(t, sessions.tokens)
	require.Len(t, sessions.revoked, 1)

	_, err = svc.Refresh(context.Background(), created.AccessToken, created.RefreshToken)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}
