package api

import (
	"context"       // Context for Redis operations
	"encoding/json" // Raw body handling for single-or-batch create
	"fmt"           // Error formatting
	"io"            // Request body reading
	"net/http"      // HTTP status codes
	"strconv"       // String conversion
	"strings"       // String manipulation
	"time"          // Cache TTLs and period filters

	"fintrack/internal/domain"     // Importing domain models
	"fintrack/internal/middleware" // Authenticated user resolution
	"fintrack/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

const listCacheTTL = 60 * time.Second

// transactionCacheKeys returns the cache keys invalidated by ledger writes.
// Only the unfiltered list and the category set are cached, so the key set
// stays enumerable.
func transactionCacheKeys(userID uint) []string {
	id := strconv.Itoa(int(userID))
	return []string{
		"transactions:user:" + id + ":all",
		"categories:user:" + id,
	}
}

// invalidateTransactionCaches drops the cached reads after a write
func invalidateTransactionCaches(rdb *redis.Client, userID uint) {
	_ = utils.DeleteCache(context.Background(), rdb, transactionCacheKeys(userID)...)
}

// transactionInput is the client shape for one ledger record
type transactionInput struct {
	Name      string                 `json:"name"`
	Kind      domain.TransactionKind `json:"kind"`
	Category  *string                `json:"category"`
	Amount    json.Number            `json:"amount"`
	Currency  string                 `json:"currency"`
	Frequency *domain.Frequency      `json:"frequency"`
	Period    *int                   `json:"period"`
	Date      string                 `json:"date"`
}

// validateTransaction turns one input record into a ledger transaction
func validateTransaction(in transactionInput, userID uint) (domain.Transaction, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Name is required")
	}
	if !domain.ValidTransactionKind(in.Kind) {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Kind must be expense or income")
	}
	amount, err := decimal.NewFromString(in.Amount.String())
	if err != nil {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Amount must be a number")
	}
	if amount.IsNegative() {
		// Sign lives in the kind, amounts are magnitudes
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Amount must not be negative")
	}
	currency := in.Currency
	if currency == "" {
		currency = "usd"
	}
	if !domain.ValidCurrency(currency) {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Unsupported currency")
	}
	if in.Frequency != nil && !domain.ValidFrequency(*in.Frequency) {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Frequency must be monthly or yearly")
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed, "Date must be YYYY-MM-DD")
	}
	return domain.Transaction{
		UserID:    userID,
		Name:      in.Name,
		Kind:      in.Kind,
		Category:  in.Category,
		Amount:    amount.Round(2),
		Currency:  currency,
		Frequency: in.Frequency,
		Period:    in.Period,
		Date:      date,
	}, nil
}

// ListTransactionsHandler returns the caller's transactions ordered by
// (date, name, category), optionally filtered to one month+year period
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		monthStr, yearStr := c.Query("month"), c.Query("year")
		filtered := monthStr != "" && yearStr != ""

		ctx := context.Background()
		cacheKey := "transactions:user:" + strconv.Itoa(int(userID)) + ":all"
		if !filtered {
			var cached []domain.Transaction
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, gin.H{"transactions": cached, "cached": true})
				return
			}
		}

		query := db.Where("user_id = ?", userID)
		if filtered {
			month, errM := strconv.Atoi(monthStr)
			year, errY := strconv.Atoi(yearStr)
			if errM != nil || errY != nil || month < 1 || month > 12 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month or year", "kind": domain.ErrInvalidInput})
				return
			}
			start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
		}
		var transactions []domain.Transaction
		if err := query.Order("date asc, name asc, category asc").Find(&transactions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		if !filtered {
			_ = utils.SetCache(ctx, rdb, cacheKey, transactions, listCacheTTL)
		}
		c.JSON(http.StatusOK, gin.H{"transactions": transactions, "cached": false})
	}
}

// CreateTransactionsHandler accepts a single record or an array in one call.
// Each record is validated independently; a batch is all-or-nothing and the
// error names the failing record.
func CreateTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		trimmed := strings.TrimSpace(string(body))
		batch := strings.HasPrefix(trimmed, "[")

		var raws []json.RawMessage
		if batch {
			if err := json.Unmarshal(body, &raws); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
				return
			}
		} else {
			raws = []json.RawMessage{json.RawMessage(body)}
		}
		if len(raws) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty batch", "kind": domain.ErrInvalidInput})
			return
		}

		transactions := make([]domain.Transaction, 0, len(raws))
		for i, raw := range raws {
			var in transactionInput
			if err := json.Unmarshal(raw, &in); err != nil {
				respondError(c, domain.NewError(domain.ErrValidationFailed,
					fmt.Sprintf("Record %d: malformed transaction", i+1)))
				return
			}
			t, err := validateTransaction(in, userID)
			if err != nil {
				respondError(c, domain.NewError(domain.ErrValidationFailed,
					fmt.Sprintf("Record %d: %s", i+1, err.Error())))
				return
			}
			transactions = append(transactions, t)
		}

		// All rows visible or none
		if err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&transactions).Error
		}); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"count":   len(transactions),
				"error":   err.Error(),
			}).Error("Transaction create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transactions"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   len(transactions),
		}).Info("Transactions created")
		invalidateTransactionCaches(rdb, userID)
		if batch {
			c.JSON(http.StatusCreated, transactions)
			return
		}
		c.JSON(http.StatusCreated, transactions[0])
	}
}

// transactionPatch is a partial update; nil fields are left untouched
type transactionPatch struct {
	Name      *string                 `json:"name"`
	Kind      *domain.TransactionKind `json:"kind"`
	Category  *string                 `json:"category"`
	Amount    *json.Number            `json:"amount"`
	Currency  *string                 `json:"currency"`
	Frequency *domain.Frequency       `json:"frequency"`
	Period    *int                    `json:"period"`
	Date      *string                 `json:"date"`
}

// UpdateTransactionHandler partially updates one owned transaction.
// A record owned by someone else reads as not found.
func UpdateTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id", "kind": domain.ErrInvalidInput})
			return
		}
		var existing domain.Transaction
		if err := db.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error; err != nil {
			respondError(c, domain.NewError(domain.ErrNotFound, "Transaction not found"))
			return
		}
		var patch transactionPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		updates := map[string]any{}
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Name must not be empty"))
				return
			}
			updates["name"] = *patch.Name
		}
		if patch.Kind != nil {
			if !domain.ValidTransactionKind(*patch.Kind) {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Kind must be expense or income"))
				return
			}
			updates["kind"] = *patch.Kind
		}
		if patch.Category != nil {
			updates["category"] = *patch.Category
		}
		if patch.Amount != nil {
			amount, err := decimal.NewFromString(patch.Amount.String())
			if err != nil || amount.IsNegative() {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Amount must be a non-negative number"))
				return
			}
			updates["amount"] = amount.Round(2)
		}
		if patch.Currency != nil {
			if !domain.ValidCurrency(*patch.Currency) {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Unsupported currency"))
				return
			}
			updates["currency"] = *patch.Currency
		}
		if patch.Frequency != nil {
			if !domain.ValidFrequency(*patch.Frequency) {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Frequency must be monthly or yearly"))
				return
			}
			updates["frequency"] = *patch.Frequency
		}
		if patch.Period != nil {
			updates["period"] = *patch.Period
		}
		if patch.Date != nil {
			date, err := domain.ParseDate(*patch.Date)
			if err != nil {
				respondError(c, domain.NewError(domain.ErrValidationFailed, "Date must be YYYY-MM-DD"))
				return
			}
			updates["date"] = date
		}
		if len(updates) > 0 {
			if err := db.Model(&existing).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
				return
			}
		}
		var updated domain.Transaction
		if err := db.First(&updated, existing.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transaction"})
			return
		}
		invalidateTransactionCaches(rdb, userID)
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteTransactionsHandler deletes a batch by id. Unknown or foreign ids
// are no-ops; only a malformed ids shape is an error.
func DeleteTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var req struct {
			IDs json.RawMessage `json:"ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		var ids []uint
		if err := json.Unmarshal(req.IDs, &ids); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ids must be a list of transaction ids", "kind": domain.ErrInvalidInput})
			return
		}
		var deleted int64
		// Atomic: a concurrent reader sees all rows or none of them gone
		if err := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&domain.Transaction{})
			deleted = result.RowsAffected
			return result.Error
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transactions"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"deleted": deleted,
		}).Info("Transactions deleted")
		invalidateTransactionCaches(rdb, userID)
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

// DeleteTransactionHandler deletes a single owned transaction
func DeleteTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id", "kind": domain.ErrInvalidInput})
			return
		}
		result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Transaction{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
			return
		}
		if result.RowsAffected == 0 {
			respondError(c, domain.NewError(domain.ErrNotFound, "Transaction not found"))
			return
		}
		invalidateTransactionCaches(rdb, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Successfully deleted transaction"})
	}
}

// CategoriesHandler returns the caller's distinct categories, including
// the null category when present
func CategoriesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		ctx := context.Background()
		cacheKey := "categories:user:" + strconv.Itoa(int(userID))
		var cached []*string
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"categories": cached, "cached": true})
			return
		}
		var categories []*string
		if err := db.Model(&domain.Transaction{}).
			Where("user_id = ?", userID).
			Distinct().
			Pluck("category", &categories).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, categories, listCacheTTL)
		c.JSON(http.StatusOK, gin.H{"categories": categories, "cached": false})
	}
}
