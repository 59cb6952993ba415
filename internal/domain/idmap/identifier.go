package idmap

import "time"

// Identifier is a value within a scheme. (SchemeID, Value) is the natural key.
type Identifier struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SchemeID  uint      `gorm:"column:scheme_id;not null;uniqueIndex:ux_identifiers_scheme_value,priority:1" json:"scheme_id"`
	Scheme    *Scheme   `gorm:"foreignKey:SchemeID;constraint:OnDelete:RESTRICT" json:"scheme,omitempty"`
	Value     string    `gorm:"column:value;type:varchar(512);not null;uniqueIndex:ux_identifiers_scheme_value,priority:2" json:"value"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
}

func (Identifier) TableName() string { return "identifiers" }

// SchemeName returns the preloaded scheme's name, or "" when not loaded.
func (i *Identifier) SchemeName() string {
	if i == nil || i.Scheme == nil {
		return ""
	}
	return i.Scheme.Name
}
