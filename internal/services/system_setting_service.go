package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
)

type SettingStore interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	List(ctx context.Context) ([]*models.SystemSetting, error)
	Values(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value, description string, userID int) error
}

// RulesProvider supplies the rental rules in force
type RulesProvider interface {
	RentalRules(ctx context.Context) models.RentalRules
}

// StaticRules serves a fixed rule set
type StaticRules models.RentalRules

func (r StaticRules) RentalRules(context.Context) models.RentalRules { return models.RentalRules(r) }

const (
	defaultCurrency          = "MYR"
	defaultLowStockThreshold = 1
)

type settingKind int

const (
	settingInt settingKind = iota
	settingMoney
	settingText
)

var knownSettings = map[string]settingKind{
	models.SettingMaxRentalDays:     settingInt,
	models.SettingMaxActiveRentals:  settingInt,
	models.SettingMinRentalItems:    settingInt,
	models.SettingMaxRentalItems:    settingInt,
	models.SettingLateFeePerDay:     settingMoney,
	models.SettingCurrency:          settingText,
	models.SettingLowStockThreshold: settingInt,
}

type SystemSettingService struct {
	Repo     SettingStore
	Defaults models.RentalRules
	Activity ActivityRecorder
}

func NewSystemSettingService(repo SettingStore, defaults models.RentalRules, activity ActivityRecorder) *SystemSettingService {
	if activity == nil {
		activity = nopRecorder{}
	}
	return &SystemSettingService{Repo: repo, Defaults: defaults, Activity: activity}
}

func (s *SystemSettingService) GetSetting(ctx context.Context, key string) (*models.SystemSetting, error) {
	setting, err := s.Repo.Get(ctx, key)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeSettingNotFound, fmt.Sprintf("setting %q not found", key))
	}
	return setting, apperr.Persistence("get setting", err)
}

func (s *SystemSettingService) ListSettings(ctx context.Context) ([]*models.SystemSetting, error) {
	settings, err := s.Repo.List(ctx)
	return settings, apperr.Persistence("list settings", err)
}

// UpdateSetting validates and stores a value for a known key
func (s *SystemSettingService) UpdateSetting(ctx context.Context, key, value string) error {
	kind, ok := knownSettings[key]
	if !ok {
		return apperr.NotFound(apperr.CodeSettingNotFound, fmt.Sprintf("setting %q not found", key))
	}
	value = strings.TrimSpace(value)
	if err := validateSettingValue(key, kind, value); err != nil {
		return err
	}

	// cross-field check for the item range
	if key == models.SettingMinRentalItems || key == models.SettingMaxRentalItems {
		rules := s.RentalRules(ctx)
		n, _ := strconv.Atoi(value)
		if key == models.SettingMinRentalItems && n > rules.MaxItems {
			return invalid("min_rental_items must not exceed max_rental_items (%d)", rules.MaxItems)
		}
		if key == models.SettingMaxRentalItems && n < rules.MinItems {
			return invalid("max_rental_items must not be below min_rental_items (%d)", rules.MinItems)
		}
	}

	userID := 0
	if sess := auth.SessionFrom(ctx); sess != nil {
		userID = sess.UserID
	}
	if err := s.Repo.Upsert(ctx, key, value, "", userID); err != nil {
		return apperr.Persistence("update setting", err)
	}
	s.Activity.Record(ctx, models.ActionSettingChange, "system_settings", 0, fmt.Sprintf("%s=%s", key, value))
	return nil
}

func validateSettingValue(key string, kind settingKind, value string) error {
	switch kind {
	case settingInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalid("%s must be a positive whole number", key)
		}
	case settingMoney:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return invalid("%s must be a positive amount", key)
		}
	case settingText:
		if len(value) != 3 {
			return invalid("%s must be a 3 letter code", key)
		}
	}
	return nil
}

// RentalRules reads the rule settings, falling back to the configured
// defaults for any missing or invalid value
func (s *SystemSettingService) RentalRules(ctx context.Context) models.RentalRules {
	rules := s.Defaults
	values, err := s.Repo.Values(ctx)
	if err != nil {
		log.Printf("[Settings] using default rental rules: %v", err)
		return rules
	}
	rules.MaxDurationDays = positiveInt(values, models.SettingMaxRentalDays, rules.MaxDurationDays)
	rules.MaxActiveRentals = positiveInt(values, models.SettingMaxActiveRentals, rules.MaxActiveRentals)
	rules.MinItems = positiveInt(values, models.SettingMinRentalItems, rules.MinItems)
	rules.MaxItems = positiveInt(values, models.SettingMaxRentalItems, rules.MaxItems)
	if f, err := strconv.ParseFloat(values[models.SettingLateFeePerDay], 64); err == nil && f > 0 {
		rules.LateFeePerDay = f
	}
	if rules.MaxItems < rules.MinItems {
		rules.MinItems, rules.MaxItems = s.Defaults.MinItems, s.Defaults.MaxItems
	}
	return rules
}

func (s *SystemSettingService) Currency(ctx context.Context) string {
	setting, err := s.Repo.Get(ctx, models.SettingCurrency)
	if err != nil || len(setting.SettingValue) != 3 {
		return defaultCurrency
	}
	return strings.ToUpper(setting.SettingValue)
}

func (s *SystemSettingService) LowStockThreshold(ctx context.Context) int {
	values, err := s.Repo.Values(ctx)
	if err != nil {
		return defaultLowStockThreshold
	}
	return positiveInt(values, models.SettingLowStockThreshold, defaultLowStockThreshold)
}

func positiveInt(values map[string]string, key string, fallback int) int {
	if n, err := strconv.Atoi(values[key]); err == nil && n > 0 {
		return n
	}
	return fallback
}
