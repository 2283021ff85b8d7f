package api

import (
	"encoding/json" // Amounts arrive as JSON numbers
	"net/http"      // HTTP status codes

	"fintrack/internal/domain"     // Importing domain models
	"fintrack/internal/middleware" // Authenticated user resolution

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Fixed-point quantities and prices
	"gorm.io/gorm"                  // GORM ORM library
)

// investmentInput is the client shape for one holding
type investmentInput struct {
	AssetType     domain.AssetType `json:"asset_type"`
	Symbol        string           `json:"symbol"`
	Quantity      json.Number      `json:"quantity"`
	PurchasePrice json.Number      `json:"purchase_price"`
	CurrentPrice  *json.Number     `json:"current_price"`
	PurchaseDate  string           `json:"purchase_date"`
}

// CreateInvestmentHandler records a holding for the authenticated user.
// Ownership comes from the session, never from client input.
func CreateInvestmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var in investmentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		if !domain.ValidAssetType(in.AssetType) {
			respondError(c, domain.NewError(domain.ErrValidationFailed, "Asset type must be Stock or Crypto"))
			return
		}
		if in.Symbol == "" {
			respondError(c, domain.NewError(domain.ErrValidationFailed, "Symbol is required"))
			return
		}
		quantity, err := decimal.NewFromString(in.Quantity.String())
		if err != nil || quantity.IsNegative() {
			respondError(c, domain.NewError(domain.ErrValidationFailed, "Quantity must be a non-negative number"))
			return
		}
		purchasePrice, err := decimal.NewFromString(in.PurchasePrice.String())
		if err != nil || purchasePrice.IsNegative() {
			respondError(c, domain.NewError(domain.ErrValidationFailed, "Purchase price must be a non-negative number"))
			return
		}
		var currentPrice *decimal.Decimal
		if in.CurrentPrice != nil {
			p, err := decimal.NewFromString(in.CurrentPrice.String())
			if err != nil || p.IsNegative() {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Current price must be a non-negative number"))
				return
			}
			rounded := p.Round(2)
			currentPrice = &rounded
		}
		purchaseDate, err := domain.ParseDate(in.PurchaseDate)
		if err != nil {
			respondError(c, domain.NewError(domain.ErrValidationFailed, "Purchase date must be YYYY-MM-DD"))
			return
		}
		investment := domain.Investment{
			UserID:        userID,
			AssetType:     in.AssetType,
			Symbol:        in.Symbol,
			Quantity:      quantity.Round(4),
			PurchasePrice: purchasePrice.Round(2),
			CurrentPrice:  currentPrice,
			PurchaseDate:  purchaseDate,
		}
		if err := db.Create(&investment).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create investment"})
			return
		}
		c.JSON(http.StatusCreated, investment)
	}
}

// ListInvestmentsHandler returns the caller's holdings in insertion order
func ListInvestmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var investments []domain.Investment
		if err := db.Where("user_id = ?", userID).Order("id asc").Find(&investments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch investments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"investments": investments})
	}
}
