package api

import (
	"net/http" // HTTP status codes

	"fintrack/internal/domain" // Domain error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps a domain error kind to an HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrAuthenticationRequired, domain.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case domain.ErrNotFound, domain.ErrUserNotFound:
		return http.StatusNotFound
	case domain.ErrUpstreamUnavailable:
		return http.StatusBadGateway
	case domain.ErrDuplicateUsername, domain.ErrValidationFailed, domain.ErrInvalidInput,
		domain.ErrExpired, domain.ErrIncorrectCode, domain.ErrNoCodeIssued,
		domain.ErrInvalidToken, domain.ErrIssuerMismatch, domain.ErrEmailUnverified:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a domain error as {"error": msg, "kind": kind}.
// Non-domain errors become an opaque 500 and are logged.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		}).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": kind})
}
