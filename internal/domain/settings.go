package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DashboardRange is the default time window shown on the dashboard
type DashboardRange string

const (
	RangeCurrentMonth DashboardRange = "current_month"
	RangeThirtyDays   DashboardRange = "30_days"
	RangeQuarter      DashboardRange = "quarter"
	RangeYear         DashboardRange = "year"
	RangeAll          DashboardRange = "all"
)

// ValidDashboardRange reports whether r is a known range
func ValidDashboardRange(r DashboardRange) bool {
	switch r {
	case RangeCurrentMonth, RangeThirtyDays, RangeQuarter, RangeYear, RangeAll:
		return true
	}
	return false
}

// CategoryLimits maps category names to per-category budget ceilings.
// It stores as a JSON object in a TEXT column.
type CategoryLimits map[string]decimal.Decimal

// Value implements driver.Valuer, serializing the map to JSON
func (cl CategoryLimits) Value() (driver.Value, error) {
	if cl == nil {
		return "{}", nil
	}
	b, err := json.Marshal(cl)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner, accepting JSON text or bytes
func (cl *CategoryLimits) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*cl = CategoryLimits{}
		return nil
	case []byte:
		return json.Unmarshal(v, cl)
	case string:
		return json.Unmarshal([]byte(v), cl)
	default:
		return fmt.Errorf("cannot scan %T into CategoryLimits", src)
	}
}

// UserSettings Model — one row per user, auto-provisioned at user creation.
// Invariant: IncomeRatioForBudget is null whenever IncomeAffectsBudget is false.
type UserSettings struct {
	ID                   uint           `gorm:"primaryKey" json:"-"`
	UserID               uint           `gorm:"uniqueIndex;not null" json:"-"`               // One-to-one with User
	MonthlyBudget        *int           `json:"monthly_budget"`                              // Fixed monthly ceiling, nullable
	CategoryLimits       CategoryLimits `gorm:"type:text" json:"category_limits"`            // Per-category ceilings
	OverSpendThreshold   float64        `gorm:"not null" json:"over_spend_threshold"`        // Alert fraction of budget
	Currency             string         `gorm:"size:3;not null" json:"currency"`             // Display currency
	DateFormat           string         `gorm:"size:20;not null" json:"date_format"`         // Display date format
	DashboardRange       DashboardRange `gorm:"size:20;not null" json:"dashboard_range"`     // Default dashboard window
	NotificationsEnabled bool           `gorm:"not null" json:"notifications_enabled"`       // Notification toggle
	IncomeAffectsBudget  bool           `gorm:"not null" json:"income_affects_budget"`       // Income-linked budget toggle
	IncomeRatioForBudget *float64       `json:"income_ratio_for_budget"`                     // Percentage of income, nullable
	CreatedAt            time.Time      `json:"-"`
	UpdatedAt            time.Time      `json:"-"`
}

// DefaultSettings returns the provisioning defaults for a user
func DefaultSettings(userID uint) UserSettings {
	return UserSettings{
		UserID:               userID,
		CategoryLimits:       CategoryLimits{},
		OverSpendThreshold:   0.8,
		Currency:             "usd",
		DateFormat:           "MM/DD/YYYY",
		DashboardRange:       RangeCurrentMonth,
		NotificationsEnabled: true,
		IncomeAffectsBudget:  false,
	}
}
