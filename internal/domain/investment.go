package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType classifies an investment holding
type AssetType string

const (
	AssetStock  AssetType = "Stock"
	AssetCrypto AssetType = "Crypto"
)

// ValidAssetType reports whether t is a known asset type
func ValidAssetType(t AssetType) bool {
	return t == AssetStock || t == AssetCrypto
}

// Investment Model
type Investment struct {
	ID            uint             `gorm:"primaryKey" json:"id"`                              // Primary key
	UserID        uint             `gorm:"not null;index" json:"-"`                           // Owner, assigned from session
	AssetType     AssetType        `gorm:"size:50;not null" json:"asset_type"`                // Stock or Crypto
	Symbol        string           `gorm:"size:10;not null" json:"symbol"`                    // e.g. AAPL, BTC
	Quantity      decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"quantity"`       // 4 fractional digits
	PurchasePrice decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"purchase_price"` // Cost basis per unit
	CurrentPrice  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"current_price"`           // Stored, not derived; nullable
	PurchaseDate  Date             `gorm:"type:date;not null" json:"purchase_date"`
	CreatedAt     time.Time        `json:"created_at"`
}
