package idmap

import "time"

const (
	APIKeyMinLength = 16
	APIKeyMaxLength = 128
)

// APIKey is a write credential presented in the X-Api-Key header.
type APIKey struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"column:key;type:varchar(128);not null;uniqueIndex" json:"-"`
	Notes     string    `gorm:"column:notes;type:varchar(256);not null;default:''" json:"notes"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (APIKey) TableName() string { return "api_keys" }
