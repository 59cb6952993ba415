package idmap

import "time"

// Scheme is a namespace of identifier values, e.g. "uk-area_id".
// Names are not unique; lookups by name resolve to the lowest id.
type Scheme struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(512);not null;index" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
}

func (Scheme) TableName() string { return "schemes" }
