package api

import (
	"net/http" // HTTP status codes
	"time"     // Wall-clock now for the derived budget

	"fintrack/internal/domain"     // Importing domain models
	"fintrack/internal/middleware" // Authenticated user resolution
	"fintrack/internal/settings"   // Settings engine

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// GetSettingsHandler returns the caller's settings, provisioning defaults on
// first access, together with the freshly derived income-based budget
func GetSettingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		s, err := settings.Provision(db, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		budget, err := settings.IncomeBasedBudget(db, userID, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": s, "income_based_budget": budget})
	}
}

// UpdateBudgetSettingsHandler partially updates the budget settings
func UpdateBudgetSettingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var req struct {
			MonthlyBudget      *int                   `json:"monthly_budget"`
			CategoryLimits     *domain.CategoryLimits `json:"category_limits"`
			OverSpendThreshold *float64               `json:"over_spend_threshold"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		s, err := settings.UpdateBudget(db, userID, settings.BudgetUpdate{
			MonthlyBudget:      req.MonthlyBudget,
			CategoryLimits:     req.CategoryLimits,
			OverSpendThreshold: req.OverSpendThreshold,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": s})
	}
}

// UpdateDisplaySettingsHandler partially updates the display settings
func UpdateDisplaySettingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var req struct {
			Currency             *string                `json:"currency"`
			DateFormat           *string                `json:"date_format"`
			DashboardRange       *domain.DashboardRange `json:"dashboard_range"`
			NotificationsEnabled *bool                  `json:"notifications_enabled"`
			IncomeAffectsBudget  *bool                  `json:"income_affects_budget"`
			IncomeRatioForBudget *float64               `json:"income_ratio_for_budget"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		s, err := settings.UpdateDisplay(db, userID, settings.DisplayUpdate{
			Currency:             req.Currency,
			DateFormat:           req.DateFormat,
			DashboardRange:       req.DashboardRange,
			NotificationsEnabled: req.NotificationsEnabled,
			IncomeAffectsBudget:  req.IncomeAffectsBudget,
			IncomeRatioForBudget: req.IncomeRatioForBudget,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": s})
	}
}
