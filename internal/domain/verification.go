package domain

import "time"

// EmailVerification Model — at most one outstanding reset code per user.
// The unique index on UserID backs the supersede-on-reissue behavior.
type EmailVerification struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex;not null"` // One live code per user
	Code      string    `gorm:"size:6;not null"`      // 6-character one-time code
	CreatedAt time.Time // Issuance time, drives the 10-minute expiry window
}
