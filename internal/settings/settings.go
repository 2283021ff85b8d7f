// Package settings owns per-user budget and display configuration, its
// explicit provisioning at user creation, and the derived income-based
// budget figure.
package settings

import (
	"errors"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Provision returns the user's settings row, creating it with defaults on
// first access. Safe to call repeatedly and from concurrent requests; the
// unique index on user_id plus DO NOTHING keeps it to one row.
func Provision(db *gorm.DB, userID uint) (domain.UserSettings, error) {
	var s domain.UserSettings
	err := db.Where("user_id = ?", userID).First(&s).Error
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserSettings{}, err
	}
	s = domain.DefaultSettings(userID)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&s).Error; err != nil {
		return domain.UserSettings{}, err
	}
	// Re-read so a lost race still returns the canonical row
	if err := db.Where("user_id = ?", userID).First(&s).Error; err != nil {
		return domain.UserSettings{}, err
	}
	return s, nil
}

// BudgetUpdate carries the budget fields of a partial settings update.
// Nil means absent: the stored value is left untouched.
type BudgetUpdate struct {
	MonthlyBudget      *int
	CategoryLimits     *domain.CategoryLimits
	OverSpendThreshold *float64
}

// UpdateBudget applies a partial budget update and returns the new settings
func UpdateBudget(db *gorm.DB, userID uint, upd BudgetUpdate) (domain.UserSettings, error) {
	if _, err := Provision(db, userID); err != nil {
		return domain.UserSettings{}, err
	}
	updates := map[string]any{}
	if upd.MonthlyBudget != nil {
		if *upd.MonthlyBudget < 0 {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Monthly budget must not be negative")
		}
		updates["monthly_budget"] = *upd.MonthlyBudget
	}
	if upd.CategoryLimits != nil {
		updates["category_limits"] = *upd.CategoryLimits
	}
	if upd.OverSpendThreshold != nil {
		if *upd.OverSpendThreshold <= 0 || *upd.OverSpendThreshold > 1 {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Over-spend threshold must be in (0, 1]")
		}
		updates["over_spend_threshold"] = *upd.OverSpendThreshold
	}
	return apply(db, userID, updates)
}

// DisplayUpdate carries the display fields of a partial settings update
type DisplayUpdate struct {
	Currency             *string
	DateFormat           *string
	DashboardRange       *domain.DashboardRange
	NotificationsEnabled *bool
	IncomeAffectsBudget  *bool
	IncomeRatioForBudget *float64
}

// UpdateDisplay applies a partial display update. Turning
// income_affects_budget off clears income_ratio_for_budget in the same
// write; the ratio can only be set while the toggle ends up on.
func UpdateDisplay(db *gorm.DB, userID uint, upd DisplayUpdate) (domain.UserSettings, error) {
	current, err := Provision(db, userID)
	if err != nil {
		return domain.UserSettings{}, err
	}
	updates := map[string]any{}
	if upd.Currency != nil {
		if !domain.ValidCurrency(*upd.Currency) {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Unsupported currency")
		}
		updates["currency"] = *upd.Currency
	}
	if upd.DateFormat != nil {
		updates["date_format"] = *upd.DateFormat
	}
	if upd.DashboardRange != nil {
		if !domain.ValidDashboardRange(*upd.DashboardRange) {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Unknown dashboard range")
		}
		updates["dashboard_range"] = *upd.DashboardRange
	}
	if upd.NotificationsEnabled != nil {
		updates["notifications_enabled"] = *upd.NotificationsEnabled
	}
	// Resolve what the toggle will be after this write
	affectsBudget := current.IncomeAffectsBudget
	if upd.IncomeAffectsBudget != nil {
		affectsBudget = *upd.IncomeAffectsBudget
		updates["income_affects_budget"] = affectsBudget
	}
	if upd.IncomeRatioForBudget != nil {
		if !affectsBudget {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Income ratio requires income_affects_budget")
		}
		if *upd.IncomeRatioForBudget < 0 || *upd.IncomeRatioForBudget > 100 {
			return domain.UserSettings{}, domain.NewError(domain.ErrValidationFailed, "Income ratio must be between 0 and 100")
		}
		updates["income_ratio_for_budget"] = *upd.IncomeRatioForBudget
	}
	if !affectsBudget {
		// Invariant: ratio is null whenever the toggle is off
		updates["income_ratio_for_budget"] = nil
	}
	return apply(db, userID, updates)
}

// apply writes the collected column updates and re-reads the row
func apply(db *gorm.DB, userID uint, updates map[string]any) (domain.UserSettings, error) {
	if len(updates) > 0 {
		if err := db.Model(&domain.UserSettings{}).Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return domain.UserSettings{}, err
		}
	}
	var s domain.UserSettings
	if err := db.Where("user_id = ?", userID).First(&s).Error; err != nil {
		return domain.UserSettings{}, err
	}
	return s, nil
}

// IncomeBasedBudget derives the income-linked budget ceiling at now.
// Nil when the toggle is off, or when the ratio is unset and no monthly
// budget exists. With the ratio unset it falls back to the raw monthly
// budget; otherwise it is the current month's income sum times ratio/100,
// recomputed on every call.
func IncomeBasedBudget(db *gorm.DB, userID uint, now time.Time) (*decimal.Decimal, error) {
	s, err := Provision(db, userID)
	if err != nil {
		return nil, err
	}
	if !s.IncomeAffectsBudget {
		return nil, nil
	}
	if s.IncomeRatioForBudget == nil {
		if s.MonthlyBudget == nil {
			return nil, nil
		}
		d := decimal.NewFromInt(int64(*s.MonthlyBudget))
		return &d, nil
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	var sum decimal.Decimal
	row := db.Model(&domain.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND kind = ? AND date >= ? AND date < ?",
			userID, domain.TransactionIncome, monthStart, nextMonth).
		Row()
	if err := row.Scan(&sum); err != nil {
		return nil, err
	}
	result := sum.Mul(decimal.NewFromFloat(*s.IncomeRatioForBudget)).
		Div(decimal.NewFromInt(100))
	return &result, nil
}
