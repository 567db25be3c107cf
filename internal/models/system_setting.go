package models

import "time"

type SystemSetting struct {
	ID              int       `json:"id"`
	SettingKey      string    `json:"setting_key"`
	SettingValue    string    `json:"setting_value"`
	Description     string    `json:"description"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedByUserID int       `json:"updated_by_user_id"`
}

type UpdateSettingRequest struct {
	SettingValue string `json:"setting_value"`
}

// Setting keys backing the rental rules
const (
	SettingMaxRentalDays     = "max_rental_days"
	SettingMaxActiveRentals  = "max_active_rentals"
	SettingMinRentalItems    = "min_rental_items"
	SettingMaxRentalItems    = "max_rental_items"
	SettingLateFeePerDay     = "late_fee_per_day"
	SettingCurrency          = "currency"
	SettingLowStockThreshold = "low_stock_threshold"
)
