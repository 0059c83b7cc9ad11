package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Card struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ColumnID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Title           string    `gorm:"size:50;not null"`
	Description     string
	BackgroundColor string
	Deadline        *time.Time
	StartAt         *time.Time
	Position        int `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`

	Column Column `gorm:"foreignKey:ColumnID"`
}
