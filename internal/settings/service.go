package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/config"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/logger"
)

// Setting keys persisted in the system_settings table.
const (
	KeyTaxRate                = "tax_rate"
	KeyLateFeePercent         = "late_fee_percentage"
	KeyQuotationValidityHours = "quotation_validity_hours"
	KeyCurrency               = "currency"
)

var knownKeys = []string{
	KeyTaxRate,
	KeyLateFeePercent,
	KeyQuotationValidityHours,
	KeyCurrency,
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SettingsCacheKey() string
}

// Resolved is the full settings view after overlaying DB rows on env defaults.
type Resolved struct {
	TaxRate                string `json:"tax_rate"`
	LateFeePercent         string `json:"late_fee_percentage"`
	QuotationValidityHours int    `json:"quotation_validity_hours"`
	Currency               string `json:"currency"`
}

// Service resolves runtime-tunable settings for the rest of the platform. It
// satisfies the settings provider interfaces the domain services declare.
type Service struct {
	repo     Repository
	cache    cache
	defaults config.RentalConfig
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the settings service.
func NewService(repo Repository, c cache, defaults config.RentalConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if c == nil {
		return nil, fmt.Errorf("settings cache required")
	}
	return &Service{
		repo:     repo,
		cache:    c,
		defaults: defaults,
		cacheTTL: defaults.SettingsCacheTTL(),
		logg:     logg,
	}, nil
}

// Resolve returns the effective settings, served from cache when fresh.
func (s *Service) Resolve(ctx context.Context) (*Resolved, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "loading settings")
	}

	resolved := s.defaultsView()
	for _, row := range rows {
		applyOverride(resolved, row.Key, row.Value)
	}

	s.toCache(ctx, resolved)
	return resolved, nil
}

func (s *Service) defaultsView() *Resolved {
	return &Resolved{
		TaxRate:                s.defaults.TaxRate,
		LateFeePercent:         s.defaults.LateFeePercent,
		QuotationValidityHours: s.defaults.QuotationValidityHours,
		Currency:               s.defaults.Currency,
	}
}

func applyOverride(resolved *Resolved, key, value string) {
	switch key {
	case KeyTaxRate:
		resolved.TaxRate = value
	case KeyLateFeePercent:
		resolved.LateFeePercent = value
	case KeyQuotationValidityHours:
		if hours, err := strconv.Atoi(value); err == nil && hours > 0 {
			resolved.QuotationValidityHours = hours
		}
	case KeyCurrency:
		resolved.Currency = value
	}
}

func (s *Service) fromCache(ctx context.Context) *Resolved {
	raw, err := s.cache.Get(ctx, s.cache.SettingsCacheKey())
	if err != nil {
		if !errors.Is(err, goredis.Nil) && s.logg != nil {
			s.logg.Warn(ctx, "settings cache read failed")
		}
		return nil
	}
	var resolved Resolved
	if err := json.Unmarshal([]byte(raw), &resolved); err != nil {
		return nil
	}
	return &resolved
}

func (s *Service) toCache(ctx context.Context, resolved *Resolved) {
	payload, err := json.Marshal(resolved)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.SettingsCacheKey(), string(payload), s.cacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "settings cache write failed")
	}
}

// Update validates and persists one setting override, then drops the cache so
// the next read resolves fresh.
func (s *Service) Update(ctx context.Context, key, value string, updatedBy uuid.UUID) (*models.SystemSetting, error) {
	if err := validateSetting(key, value); err != nil {
		return nil, err
	}

	setting := &models.SystemSetting{
		Key:       key,
		Value:     value,
		UpdatedBy: &updatedBy,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "saving setting")
	}

	if err := s.cache.Del(ctx, s.cache.SettingsCacheKey()); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "setting_key", key), "settings cache invalidation failed")
	}
	return setting, nil
}

func validateSetting(key, value string) error {
	switch key {
	case KeyTaxRate, KeyLateFeePercent:
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be a decimal fraction", key))
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be in [0, 1)", key))
		}
	case KeyQuotationValidityHours:
		hours, err := strconv.Atoi(value)
		if err != nil || hours <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quotation_validity_hours must be a positive integer")
		}
	case KeyCurrency:
		if _, err := enums.ParseCurrency(value); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown setting %q", key))
	}
	return nil
}

// TaxRate returns the effective tax fraction.
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(resolved.TaxRate)
}

// LateFeePercent returns the effective late fee fraction.
func (s *Service) LateFeePercent(ctx context.Context) (decimal.Decimal, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(resolved.LateFeePercent)
}

// QuotationValidity returns how long a new quotation stays open.
func (s *Service) QuotationValidity(ctx context.Context) (time.Duration, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(resolved.QuotationValidityHours) * time.Hour, nil
}

// Currency returns the platform pricing currency.
func (s *Service) Currency(ctx context.Context) (enums.Currency, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return enums.ParseCurrency(resolved.Currency)
}

// PendingOrderTTL returns how long unpaid pending orders may linger. This one
// is env-only; no DB override exists for it.
func (s *Service) PendingOrderTTL() time.Duration {
	return s.defaults.PendingOrderTTL()
}

// Keys lists the setting keys admins may override.
func Keys() []string {
	out := make([]string, len(knownKeys))
	copy(out, knownKeys)
	return out
}
