package model

import (
	"time"

	"github.com/google/uuid"
)

// BoardMember records an invitation of a member onto a board.
type BoardMember struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index"`
	MemberID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time

	Board  Board  `gorm:"foreignKey:BoardID"`
	Member Member `gorm:"foreignKey:MemberID"`
}
