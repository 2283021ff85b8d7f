package api

import (
	"net/http" // HTTP status codes
	"time"     // Verification attempt time

	"fintrack/internal/domain"       // Domain error kinds
	"fintrack/internal/mail"         // Mail sender contract
	"fintrack/internal/verification" // Reset-code state machine

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ResetPasswordHandler issues a reset code and mails it to the user
func ResetPasswordHandler(db *gorm.DB, sender mail.Sender, from string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		if err := verification.RequestReset(db, sender, from, req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
	}
}

// CodeVerificationHandler consumes a reset code and sets the new password
func CodeVerificationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Code     string `json:"code" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.ErrInvalidInput})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-64 characters", "kind": domain.ErrValidationFailed})
			return
		}
		if err := verification.Verify(db, req.Email, req.Code, req.Password, time.Now()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
	}
}
