package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind separates money going out from money coming in.
// The amount field stores a magnitude; the kind carries the sign.
type TransactionKind string

const (
	TransactionExpense TransactionKind = "expense"
	TransactionIncome  TransactionKind = "income"
)

// ValidTransactionKind reports whether k is a known kind
func ValidTransactionKind(k TransactionKind) bool {
	return k == TransactionExpense || k == TransactionIncome
}

// Frequency is an optional recurrence interval for a transaction
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ValidFrequency reports whether f is a known frequency
func ValidFrequency(f Frequency) bool {
	return f == FrequencyMonthly || f == FrequencyYearly
}

// Currencies maps supported 3-letter currency codes to display names
var Currencies = map[string]string{
	"usd": "US Dollar $",
	"eur": "Euro €",
	"gbp": "Great Britain Pound £",
	"jpy": "Japan Yen ¥",
	"aud": "Australian Dollar $",
	"cad": "Canadian Dollar $",
	"krw": "Korean Won ₩",
	"inr": "Indian Rupee ₹",
}

// ValidCurrency reports whether code is a supported currency
func ValidCurrency(code string) bool {
	_, ok := Currencies[code]
	return ok
}

// Transaction Model
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	UserID    uint            `gorm:"not null;index" json:"-"`                   // Owner, never taken from client input
	Name      string          `gorm:"size:150;not null" json:"name"`             // Display name
	Kind      TransactionKind `gorm:"size:10;not null" json:"kind"`              // expense or income
	Category  *string         `gorm:"size:150" json:"category"`                  // Free-text category, nullable
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"` // Magnitude, 2 fractional digits
	Currency  string          `gorm:"size:3;not null" json:"currency"`           // 3-letter code from Currencies
	Frequency *Frequency      `gorm:"size:10" json:"frequency"`                  // monthly, yearly or null
	Period    *int            `json:"period"`                                    // Recurrence period, nullable
	Date      Date            `gorm:"type:date;not null" json:"date"`            // Transaction date
	CreatedAt time.Time       `json:"created_at"`                                // System-assigned, immutable
	UpdatedAt time.Time       `json:"updated_at"`                                // System-maintained
}
