package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                       // Primary key
	Username  string    `gorm:"size:150;unique;not null" json:"username"`   // Unique username
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"` // Unique email, keys external-identity logins
	Password  string    `gorm:"not null" json:"-"`                          // Bcrypt hash, never serialized
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}
