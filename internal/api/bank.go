package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Client user IDs
	"time"     // Default fetch window

	"fintrack/internal/domain"     // Importing domain models
	"fintrack/internal/middleware" // Authenticated user resolution
	"fintrack/internal/plaid"      // Bank aggregator client

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CreateLinkTokenHandler starts the client-side account-link flow
func CreateLinkTokenHandler(pc *plaid.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		token, err := pc.CreateLinkToken(c.Request.Context(), strconv.Itoa(int(userID)))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"link_token": token})
	}
}

// ExchangePublicTokenHandler swaps the link flow's public token for a
// persistent aggregator access token
func ExchangePublicTokenHandler(pc *plaid.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PublicToken string `json:"public_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Public token is required", "kind": domain.ErrInvalidInput})
			return
		}
		accessToken, err := pc.ExchangePublicToken(c.Request.Context(), req.PublicToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
	}
}

// bankWindow returns the last-30-days fetch window
func bankWindow() (domain.Date, domain.Date) {
	now := time.Now()
	return domain.DateOf(now.AddDate(0, 0, -30)), domain.DateOf(now)
}

// BankTransactionsHandler fetches recent transactions from the aggregator
// without persisting them
func BankTransactionsHandler(pc *plaid.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := c.Query("access_token")
		if accessToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Access token is required", "kind": domain.ErrInvalidInput})
			return
		}
		start, end := bankWindow()
		transactions, err := pc.GetTransactions(c.Request.Context(), accessToken, start, end, 100)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": transactions})
	}
}

// BankBalanceHandler fetches current balances for linked accounts
func BankBalanceHandler(pc *plaid.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := c.Query("access_token")
		if accessToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Access token is required", "kind": domain.ErrInvalidInput})
			return
		}
		accounts, err := pc.GetBalances(c.Request.Context(), accessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

// ImportBankTransactionsHandler fetches recent aggregator transactions,
// normalizes them into ledger records and inserts them as one atomic batch
func ImportBankTransactionsHandler(db *gorm.DB, rdb *redis.Client, pc *plaid.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var req struct {
			AccessToken string `json:"access_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Access token is required", "kind": domain.ErrInvalidInput})
			return
		}
		start, end := bankWindow()
		fetched, err := pc.GetTransactions(c.Request.Context(), req.AccessToken, start, end, 100)
		if err != nil {
			respondError(c, err)
			return
		}
		transactions := make([]domain.Transaction, 0, len(fetched))
		for _, bt := range fetched {
			t, err := plaid.Normalize(bt, userID)
			if err != nil {
				respondError(c, err)
				return
			}
			transactions = append(transactions, t)
		}
		if len(transactions) > 0 {
			if err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&transactions).Error
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import transactions"})
				return
			}
			invalidateTransactionCaches(rdb, userID)
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,
			"imported": len(transactions),
		}).Info("Bank transactions imported")
		c.JSON(http.StatusCreated, gin.H{"imported": len(transactions)})
	}
}
