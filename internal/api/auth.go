package api

import (
	"context"  // Context for token verification
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation
	"time"     // Token lifetimes

	"fintrack/internal/config"     // Injected configuration
	"fintrack/internal/domain"     // Importing domain models
	"fintrack/internal/middleware" // Cookie names
	"fintrack/internal/settings"   // Explicit settings provisioning
	"fintrack/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/crypto/bcrypt"    // Password hashing
	"google.golang.org/api/idtoken" // Google ID token validation
	"gorm.io/gorm"                  // GORM ORM library
)

// Request and Response structs
type RegisterRequest struct {
	Username      string `json:"username" binding:"required"` // Username must be provided
	Password      string `json:"password" binding:"required"` // Password must be provided
	Email         string `json:"email" binding:"required"`    // Email must be provided
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	MonthlyBudget *int   `json:"monthly_budget"` // Optional budget seed at signup
}

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// isValidUsername checks the username is alphanumeric (plus underscore), 3-30 chars
func isValidUsername(username string) bool {
	matched, _ := regexp.MatchString(`^[A-Za-z0-9_]{3,30}$`, username)
	return matched
}

// isValidPassword checks if the password length is between 8 and 64 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}

// RegisterHandler creates a new user and provisions their settings
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be 3-30 alphanumeric characters", "kind": domain.ErrValidationFailed})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-64 characters", "kind": domain.ErrValidationFailed})
			return
		}
		username := strings.ToLower(req.Username)
		// Pre-check for a friendlier error than the unique-index violation
		var count int64
		if err := db.Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err == nil && count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "kind": domain.ErrDuplicateUsername})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Username:  username,
			Email:     strings.ToLower(req.Email),
			Password:  string(hash),
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}
		if err := db.Create(&user).Error; err != nil {
			// Unique-index race on username or email
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "kind": domain.ErrDuplicateUsername})
			return
		}
		// Provision settings explicitly, no save hooks
		if _, err := settings.Provision(db, user.ID); err != nil {
			respondError(c, err)
			return
		}
		if req.MonthlyBudget != nil {
			if _, err := settings.UpdateBudget(db, user.ID, settings.BudgetUpdate{MonthlyBudget: req.MonthlyBudget}); err != nil {
				respondError(c, err)
				return
			}
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
	}
}

// setSessionCookies delivers the token pair as HTTP-only same-site cookies
func setSessionCookies(c *gin.Context, pair utils.TokenPair, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessCookie, pair.AccessToken, int(utils.AccessTokenTTL.Seconds()), "/", "", secure, true)
	c.SetCookie(middleware.RefreshCookie, pair.RefreshToken, int(utils.RefreshTokenTTL.Seconds()), "/", "", secure, true)
}

// clearSessionCookies discards the client-held session materials
func clearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(middleware.RefreshCookie, "", -1, "/", "", secure, true)
}

// LoginHandler authenticates a user and issues the session token pair
func LoginHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "kind": domain.ErrInvalidCredentials})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "kind": domain.ErrInvalidCredentials})
			return
		}
		pair, err := utils.GenerateTokenPair(user.ID, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
			return
		}
		setSessionCookies(c, pair, cfg.IsProd)
		c.JSON(http.StatusOK, pair)
	}
}

// ExternalIdentity is the upstream-asserted identity extracted from an ID token
type ExternalIdentity struct {
	Subject       string // Stable upstream subject
	Email         string // Upstream-asserted email
	EmailVerified bool   // Whether upstream verified the email
	Issuer        string // Token issuer
}

// IdentityVerifier validates an external ID token against an audience
type IdentityVerifier func(ctx context.Context, token, audience string) (*ExternalIdentity, error)

// googleIssuers is the issuer allow-list for Google ID tokens
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleVerifier validates Google ID tokens via the idtoken library
func GoogleVerifier() IdentityVerifier {
	return func(ctx context.Context, token, audience string) (*ExternalIdentity, error) {
		payload, err := idtoken.Validate(ctx, token, audience)
		if err != nil {
			return nil, domain.NewError(domain.ErrInvalidToken, "Invalid token")
		}
		email, _ := payload.Claims["email"].(string)
		verified, _ := payload.Claims["email_verified"].(bool)
		return &ExternalIdentity{
			Subject:       payload.Subject,
			Email:         email,
			EmailVerified: verified,
			Issuer:        payload.Issuer,
		}, nil
	}
}

// GoogleLoginHandler signs a user in (creating them on first login) from a
// Google ID token and issues the same session pair as password login
func GoogleLoginHandler(db *gorm.DB, cfg *config.Config, verify IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		identity, err := verify(c.Request.Context(), req.Token, cfg.GoogleClientID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !googleIssuers[identity.Issuer] {
			respondError(c, domain.NewError(domain.ErrIssuerMismatch, "Token issuer not allowed"))
			return
		}
		if !identity.EmailVerified {
			respondError(c, domain.NewError(domain.ErrEmailUnverified, "Email not verified with identity provider"))
			return
		}
		email := strings.ToLower(identity.Email)
		var user domain.User
		err = db.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First login creates the local user keyed by email
			user = domain.User{Username: email, Email: email, Password: "!"}
			if err := db.Create(&user).Error; err != nil {
				respondError(c, err)
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"email":   email,
			}).Info("User created via external identity")
		} else if err != nil {
			respondError(c, err)
			return
		}
		// Settings are provisioned whether the user is new or returning
		if _, err := settings.Provision(db, user.ID); err != nil {
			respondError(c, err)
			return
		}
		pair, err := utils.GenerateTokenPair(user.ID, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
			return
		}
		setSessionCookies(c, pair, cfg.IsProd)
		c.JSON(http.StatusOK, pair)
	}
}

// refreshFromRequest extracts the refresh token from cookie or body
func refreshFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(middleware.RefreshCookie); err == nil && cookie != "" {
		return cookie
	}
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.Refresh
	}
	return ""
}

// RefreshHandler mints a new access token from a live refresh token
func RefreshHandler(cfg *config.Config, revoker utils.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := refreshFromRequest(c)
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		claims, err := utils.ParseRefreshToken(tokenStr, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "kind": domain.ErrAuthenticationRequired})
			return
		}
		revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "kind": domain.ErrAuthenticationRequired})
			return
		}
		access, err := utils.GenerateAccessToken(claims.UserID, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middleware.AccessCookie, access, int(utils.AccessTokenTTL.Seconds()), "/", "", cfg.IsProd, true)
		c.JSON(http.StatusOK, gin.H{"access": access})
	}
}

// LogoutHandler revokes the presented refresh token and clears the session
// cookies. Best-effort: always succeeds from the client's point of view.
func LogoutHandler(cfg *config.Config, revoker utils.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := refreshFromRequest(c); tokenStr != "" {
			if claims, err := utils.ParseRefreshToken(tokenStr, cfg.JWTSecret); err == nil {
				ttl := time.Until(claims.ExpiresAt.Time)
				if err := revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
					logrus.WithFields(logrus.Fields{
						"user_id": claims.UserID,
						"error":   err.Error(),
					}).Error("Failed to revoke refresh token")
				}
			}
		}
		clearSessionCookies(c, cfg.IsProd)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// AuthStatusHandler reports session liveness. Mounted outside the auth
// middleware and never errors.
func AuthStatusHandler(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticated := false
		if cookie, err := c.Cookie(middleware.AccessCookie); err == nil && cookie != "" {
			if claims, err := utils.ParseJWT(cookie, secret); err == nil && claims.TokenType == utils.TokenTypeAccess {
				authenticated = true
			}
		} else if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if claims, err := utils.ParseJWT(strings.TrimPrefix(h, "Bearer "), secret); err == nil && claims.TokenType == utils.TokenTypeAccess {
				authenticated = true
			}
		}
		c.JSON(http.StatusOK, gin.H{"authenticated": authenticated})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "kind": domain.ErrAuthenticationRequired})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			respondError(c, domain.NewError(domain.ErrNotFound, "User not found"))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
