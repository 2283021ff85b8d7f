package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration.
// It is loaded once at process start and injected into the components
// that need it; handlers never read the environment directly.
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	SMTPHost string // Mail server host
	SMTPPort string // Mail server port
	SMTPUser string // Mail server username
	SMTPPass string // Mail server password
	MailFrom string // Sender address for outgoing mail

	GoogleClientID string // Expected audience for Google ID tokens

	ExchangeRateKey string // exchangerate-api.com API key

	PlaidClientID string // Bank aggregator client ID
	PlaidSecret   string // Bank aggregator secret
	PlaidBaseURL  string // Bank aggregator environment base URL
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    redisDB,
		IsProd:     os.Getenv("IS_PROD") == "true",

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: os.Getenv("SMTP_PORT"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: os.Getenv("MAIL_FROM"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		ExchangeRateKey: os.Getenv("EXCHANGE_RATE_API_KEY"),

		PlaidClientID: os.Getenv("PLAID_CLIENT_ID"),
		PlaidSecret:   os.Getenv("PLAID_SECRET"),
		PlaidBaseURL:  os.Getenv("PLAID_BASE_URL"),
	}
}
