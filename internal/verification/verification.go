// Package verification implements the password-reset code lifecycle:
// a user has at most one outstanding 6-character code, issued on request,
// consumed by the first verification attempt whatever its outcome.
package verification

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/mail"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeTTL is how long a code stays valid after issuance,
// measured at verification time.
const CodeTTL = 10 * time.Minute

// GenerateCode returns a 6-character uppercase hex code
func GenerateCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// RequestReset issues a reset code for the user behind email and mails it.
// A prior outstanding code is overwritten; the unique index on user_id keeps
// a concurrent request and verify from leaving two live codes. Mail delivery
// is best-effort: the code is persisted first and a send failure is logged.
func RequestReset(db *gorm.DB, sender mail.Sender, from, email string) error {
	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewError(domain.ErrUserNotFound, "No account with that email")
		}
		return err
	}
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	record := domain.EmailVerification{UserID: user.ID, Code: code, CreatedAt: time.Now()}
	// Get-or-create then overwrite, as one upsert
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"code": record.Code, "created_at": record.CreatedAt}),
	}).Create(&record).Error; err != nil {
		return err
	}
	if sender != nil {
		body := "Your verification code is: " + code
		if err := sender.Send("Your authentication code", body, from, email); err != nil {
			logrus.WithFields(logrus.Fields{
				"email": email,
				"error": err.Error(),
			}).Error("Failed to send verification email")
		}
	}
	return nil
}

// Verify consumes the outstanding code for email. Whatever the outcome, the
// code ceases to exist; on success the user's password is replaced with a
// bcrypt hash of newPassword. now is the attempt time, which drives expiry.
func Verify(db *gorm.DB, email, code, newPassword string, now time.Time) error {
	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewError(domain.ErrUserNotFound, "No account with that email")
		}
		return err
	}
	var record domain.EmailVerification
	if err := db.Where("user_id = ?", user.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Absent record is its own error, not a catch-all
			return domain.NewError(domain.ErrNoCodeIssued, "No verification code issued")
		}
		return err
	}
	if record.Code != code {
		consume(db, &record)
		return domain.NewError(domain.ErrIncorrectCode, "Incorrect code")
	}
	if now.Sub(record.CreatedAt) >= CodeTTL {
		consume(db, &record)
		return domain.NewError(domain.ErrExpired, "Verification code expired")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		consume(db, &record)
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.EmailVerification{}, record.ID).Error; err != nil {
			return err
		}
		return tx.Model(&domain.User{}).Where("id = ?", user.ID).
			Update("password", string(hash)).Error
	})
}

// consume deletes a code record, logging rather than propagating failure
// so cleanup never masks the verification outcome
func consume(db *gorm.DB, record *domain.EmailVerification) {
	if err := db.Delete(&domain.EmailVerification{}, record.ID).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": record.UserID,
			"error":   err.Error(),
		}).Error("Failed to delete verification code")
	}
}
