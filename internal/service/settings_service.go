package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
)

// Setting keys understood by the attendance core. Values are stored as
// strings; typed accessors fall back to these defaults when a key is unset
// or unparsable.
const (
	SettingGracePeriodMinutes       = "attendance.grace_period_minutes"
	SettingEligibilityThreshold     = "attendance.eligibility_threshold"
	SettingAutoOpenEnabled          = "attendance.auto_open_enabled"
	SettingAutoCloseEnabled         = "attendance.auto_close_enabled"
	SettingQRSelfMarkEnabled        = "attendance.qr_self_mark_enabled"
	SettingAutoMarkAbsentEnabled    = "attendance.auto_mark_absent_enabled"
	SettingRetentionYears           = "attendance.retention_years"
	SettingBiometricFreshnessMin    = "attendance.biometric_freshness_minutes"
	SettingQRTokenTTLMinutes        = "attendance.qr_token_ttl_minutes"
	defaultGracePeriodMinutes       = 5
	defaultEligibilityThreshold     = 75.0
	defaultRetentionYears           = 7
	defaultBiometricFreshnessMin    = 60
	settingsCacheKeyPrefix          = "attendance:settings:"
)

// ErrUnknownSettingKey indicates a write to a key the core does not manage.
var ErrUnknownSettingKey = errors.New("unknown setting key")

// SettingsService exposes typed access to runtime-tunable configuration.
type SettingsService interface {
	GracePeriod(ctx context.Context) time.Duration
	EligibilityThreshold(ctx context.Context) float64
	AutoOpenEnabled(ctx context.Context) bool
	AutoCloseEnabled(ctx context.Context) bool
	QRSelfMarkEnabled(ctx context.Context) bool
	AutoMarkAbsentEnabled(ctx context.Context) bool
	RetentionYears(ctx context.Context) int
	BiometricFreshness(ctx context.Context) time.Duration
	QRTokenTTL(ctx context.Context) time.Duration
	List(ctx context.Context) ([]models.Setting, error)
	Set(ctx context.Context, key, value string, updatedBy uint) error
}

type settingsService struct {
	repo     repository.SettingRepository
	redis    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

var knownSettingKeys = map[string]struct{}{
	SettingGracePeriodMinutes:    {},
	SettingEligibilityThreshold:  {},
	SettingAutoOpenEnabled:       {},
	SettingAutoCloseEnabled:      {},
	SettingQRSelfMarkEnabled:     {},
	SettingAutoMarkAbsentEnabled: {},
	SettingRetentionYears:        {},
	SettingBiometricFreshnessMin: {},
	SettingQRTokenTTLMinutes:     {},
}

// NewSettingsService constructs the settings service. The redis client is
// optional; without it every lookup hits the database.
func NewSettingsService(repo repository.SettingRepository, redisClient *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) SettingsService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &settingsService{
		repo:     repo,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "settings_service").Logger(),
	}
}

func (s *settingsService) GracePeriod(ctx context.Context) time.Duration {
	minutes := s.intValue(ctx, SettingGracePeriodMinutes, defaultGracePeriodMinutes)
	return time.Duration(minutes) * time.Minute
}

func (s *settingsService) EligibilityThreshold(ctx context.Context) float64 {
	return s.floatValue(ctx, SettingEligibilityThreshold, defaultEligibilityThreshold)
}

func (s *settingsService) AutoOpenEnabled(ctx context.Context) bool {
	return s.boolValue(ctx, SettingAutoOpenEnabled, true)
}

func (s *settingsService) AutoCloseEnabled(ctx context.Context) bool {
	return s.boolValue(ctx, SettingAutoCloseEnabled, true)
}

func (s *settingsService) QRSelfMarkEnabled(ctx context.Context) bool {
	return s.boolValue(ctx, SettingQRSelfMarkEnabled, true)
}

func (s *settingsService) AutoMarkAbsentEnabled(ctx context.Context) bool {
	return s.boolValue(ctx, SettingAutoMarkAbsentEnabled, true)
}

func (s *settingsService) RetentionYears(ctx context.Context) int {
	return s.intValue(ctx, SettingRetentionYears, defaultRetentionYears)
}

func (s *settingsService) BiometricFreshness(ctx context.Context) time.Duration {
	minutes := s.intValue(ctx, SettingBiometricFreshnessMin, defaultBiometricFreshnessMin)
	return time.Duration(minutes) * time.Minute
}

// QRTokenTTL returns zero when tokens should live until session end.
func (s *settingsService) QRTokenTTL(ctx context.Context) time.Duration {
	minutes := s.intValue(ctx, SettingQRTokenTTLMinutes, 0)
	return time.Duration(minutes) * time.Minute
}

func (s *settingsService) List(ctx context.Context) ([]models.Setting, error) {
	return s.repo.List(ctx)
}

func (s *settingsService) Set(ctx context.Context, key, value string, updatedBy uint) error {
	key = strings.TrimSpace(key)
	if _, ok := knownSettingKeys[key]; !ok {
		return ErrUnknownSettingKey
	}
	if err := s.repo.Set(ctx, key, strings.TrimSpace(value), updatedBy); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, settingsCacheKeyPrefix+key).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate settings cache")
		}
	}
	return nil
}

func (s *settingsService) rawValue(ctx context.Context, key string) (string, bool) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, settingsCacheKeyPrefix+key).Result()
		if err == nil {
			return cached, true
		}
	}

	value, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("settings lookup failed")
		}
		return "", false
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, settingsCacheKeyPrefix+key, value, s.cacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache setting")
		}
	}
	return value, true
}

func (s *settingsService) intValue(ctx context.Context, key string, fallback int) int {
	raw, ok := s.rawValue(ctx, key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *settingsService) floatValue(ctx context.Context, key string, fallback float64) float64 {
	raw, ok := s.rawValue(ctx, key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *settingsService) boolValue(ctx context.Context, key string, fallback bool) bool {
	raw, ok := s.rawValue(ctx, key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}
