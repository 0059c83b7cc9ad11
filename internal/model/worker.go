package model

import (
	"time"

	"github.com/google/uuid"
)

// Worker links a member to a card as a responsible party. Rows are
// hard-deleted and carry no unique (card_id, member_id) index: the
// no-duplicates invariant is enforced by the card service before writes.
type Worker struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	CardID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MemberID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}
