package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminSession records an authenticated admin login. User holds a JSON
// snapshot of the credential at login time so the session survives later
// edits to the remote credential table.
type AdminSession struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	AdminID   string         `gorm:"not null;index" json:"admin_id"`
	User      datatypes.JSON `json:"user"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `gorm:"index" json:"expires_at"`
	RevokedAt *time.Time     `json:"revoked_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s *AdminSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
