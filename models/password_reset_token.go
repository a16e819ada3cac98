package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OTPLength   = 6
	OTPLifetime = 15 * time.Minute
	// OTPMaxAttempts is how many wrong codes a token tolerates before it is burned.
	OTPMaxAttempts = 5
)

// PasswordResetToken is a one-time code mailed to the user. Only the bcrypt
// hash of the code is stored.
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
	OTPHash   string     `gorm:"not null" json:"-"`
	Attempts  int        `gorm:"default:0" json:"attempts"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Usable reports whether the code can still be redeemed at now.
func (t PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt) && t.Attempts < OTPMaxAttempts
}
