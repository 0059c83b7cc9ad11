package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chestnut/internal/model"
)

type BoardMemberRepository struct {
	db *gorm.DB
}

func NewBoardMemberRepository(db *gorm.DB) *BoardMemberRepository {
	return &BoardMemberRepository{db: db}
}

func (r *BoardMemberRepository) Create(ctx context.Context, bm *model.BoardMember) error {
	return r.db.WithContext(ctx).Create(bm).Error
}

func (r *BoardMemberRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.BoardMember, error) {
	var members []model.BoardMember
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Find(&members).Error
	return members, err
}

// Exists reports whether a member is already on a board
func (r *BoardMemberRepository) Exists(ctx context.Context, boardID, memberID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BoardMember{}).
		Where("board_id = ? AND member_id = ?", boardID, memberID).
		Count(&count).Error
	return count > 0, err
}
