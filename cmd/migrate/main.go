package main

import (
	"fintrack/internal/config" // Custom package for configuration
	"fintrack/internal/db"     // Custom package for database migration
)

// Main function to run database migrations
func main() {
	cfg := config.LoadConfig() // Load configuration
	// Setup Data Source Name (DSN)
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db.Migrate(dsn) // Run migrations
}
