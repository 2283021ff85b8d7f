package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"fintrack/internal/api"        // Custom package for API handlers
	"fintrack/internal/config"     // Custom package for configuration
	"fintrack/internal/mail"       // Mail delivery
	"fintrack/internal/middleware" // Custom package for middleware
	"fintrack/internal/plaid"      // Bank aggregator client
	"fintrack/internal/utils"      // Token revocation list

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// External collaborators, built once from injected config
	revoker := &utils.RedisRevoker{Client: redisClient}
	mailer := &mail.SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
	}
	bankClient := plaid.New(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidBaseURL)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Public routes: registration, sessions, password reset
	r.POST("/user", api.RegisterHandler(db))                                       // Registration endpoint
	r.POST("/auth", api.LoginHandler(db, cfg))                                     // Login endpoint
	r.POST("/auth/google", api.GoogleLoginHandler(db, cfg, api.GoogleVerifier()))  // External identity login
	r.POST("/auth/refresh", api.RefreshHandler(cfg, revoker))                      // Access token refresh
	r.POST("/logout", api.LogoutHandler(cfg, revoker))                             // Session teardown
	r.GET("/auth-status", api.AuthStatusHandler(cfg.JWTSecret))                    // Liveness check, reachable unauthenticated
	r.POST("/reset-password", api.ResetPasswordHandler(db, mailer, cfg.MailFrom))  // Reset code issuance
	r.POST("/code-verification", api.CodeVerificationHandler(db))                  // Reset code consumption
	r.GET("/exchange/:from/:to", api.ExchangeRateHandler(cfg.ExchangeRateKey, "")) // Currency exchange pass-through

	// Authenticated routes
	authGroup := r.Group("")
	authGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authGroup.GET("/user/me", api.MeHandler(db)) // Current user profile

	authGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))         // Transaction list
	authGroup.POST("/transactions", api.CreateTransactionsHandler(db, redisClient))      // Single or batch create
	authGroup.PATCH("/transactions/:id", api.UpdateTransactionHandler(db, redisClient))  // Partial update
	authGroup.DELETE("/transactions", api.DeleteTransactionsHandler(db, redisClient))    // Batch delete
	authGroup.DELETE("/transactions/:id", api.DeleteTransactionHandler(db, redisClient)) // Single delete
	authGroup.GET("/categories", api.CategoriesHandler(db, redisClient))                 // Distinct categories

	authGroup.GET("/settings", api.GetSettingsHandler(db))                    // Settings with derived budget
	authGroup.POST("/settings/budget", api.UpdateBudgetSettingsHandler(db))   // Budget partial update
	authGroup.POST("/settings/display", api.UpdateDisplaySettingsHandler(db)) // Display partial update

	authGroup.GET("/investments", api.ListInvestmentsHandler(db))   // Holdings list
	authGroup.POST("/investments", api.CreateInvestmentHandler(db)) // Record a holding

	authGroup.POST("/bank/link-token", api.CreateLinkTokenHandler(bankClient))                     // Link flow start
	authGroup.POST("/bank/exchange-token", api.ExchangePublicTokenHandler(bankClient))             // Token exchange
	authGroup.GET("/bank/transactions", api.BankTransactionsHandler(bankClient))                   // Fetch without persisting
	authGroup.GET("/bank/balance", api.BankBalanceHandler(bankClient))                             // Balance fetch
	authGroup.POST("/bank/import", api.ImportBankTransactionsHandler(db, redisClient, bankClient)) // Normalize into ledger

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
