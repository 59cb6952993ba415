package idmap

import (
	"errors"
	"fmt"
	"time"
)

// ErrClaimMismatch reports a claim that references neither side of the
// identifier it was fetched for. It always indicates a query defect.
var ErrClaimMismatch = errors.New("equivalence claim does not reference identifier")

// EquivalenceClaim asserts that IdentifierA and IdentifierB denote the same
// entity. Rows are append-only: a deprecation is a new row for the same pair
// with Deprecated set. History is ordered by (Created, ID).
type EquivalenceClaim struct {
	ID uint `gorm:"primaryKey;autoIncrement;index:idx_equivalence_claims_order,priority:2" json:"id"`

	IdentifierAID uint        `gorm:"column:identifier_a_id;not null;index" json:"identifier_a_id"`
	IdentifierA   *Identifier `gorm:"foreignKey:IdentifierAID;constraint:OnDelete:RESTRICT" json:"identifier_a,omitempty"`
	IdentifierBID uint        `gorm:"column:identifier_b_id;not null;index" json:"identifier_b_id"`
	IdentifierB   *Identifier `gorm:"foreignKey:IdentifierBID;constraint:OnDelete:RESTRICT" json:"identifier_b,omitempty"`

	Created    time.Time `gorm:"column:created;not null;index:idx_equivalence_claims_order,priority:1" json:"created"`
	Deprecated bool      `gorm:"column:deprecated;not null;default:false" json:"deprecated"`
	Comment    string    `gorm:"column:comment;type:text;not null;default:''" json:"comment"`

	APIKeyID *uint   `gorm:"column:api_key_id;index" json:"api_key_id,omitempty"`
	APIKey   *APIKey `gorm:"foreignKey:APIKeyID;constraint:OnDelete:SET NULL" json:"-"`
}

func (EquivalenceClaim) TableName() string { return "equivalence_claims" }

// OtherIdentifier returns the side of the pair that is not identifierID.
// Both sides must be preloaded. A self-claim returns the identifier itself.
func (c *EquivalenceClaim) OtherIdentifier(identifierID uint) (*Identifier, error) {
	switch identifierID {
	case c.IdentifierAID:
		return c.IdentifierB, nil
	case c.IdentifierBID:
		return c.IdentifierA, nil
	default:
		return nil, fmt.Errorf("%w: claim %d (a=%d b=%d), identifier %d",
			ErrClaimMismatch, c.ID, c.IdentifierAID, c.IdentifierBID, identifierID)
	}
}
