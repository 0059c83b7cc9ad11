package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chestnut/internal/model"
)

type WorkerRepository struct {
	db *gorm.DB
}

func NewWorkerRepository(db *gorm.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// Create adds a worker assignment row. Duplicate (card, member) pairs are
// not rejected here; the card service validates the requested set first.
func (r *WorkerRepository) Create(ctx context.Context, worker *model.Worker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

// GetByCardID retrieves the assignments of a card ordered by member ID,
// which keeps set comparisons deterministic.
func (r *WorkerRepository) GetByCardID(ctx context.Context, cardID uuid.UUID) ([]model.Worker, error) {
	var workers []model.Worker
	result := r.db.WithContext(ctx).Where("card_id = ?", cardID).Order("member_id").Find(&workers)
	if result.Error != nil {
		return nil, result.Error
	}
	return workers, nil
}

// MemberIDs retrieves just the member IDs assigned to a card
func (r *WorkerRepository) MemberIDs(ctx context.Context, cardID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&model.Worker{}).
		Where("card_id = ?", cardID).
		Order("member_id").
		Pluck("member_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// DeleteByCardID removes every assignment of a card (card deletion cascade)
func (r *WorkerRepository) DeleteByCardID(ctx context.Context, cardID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("card_id = ?", cardID).Delete(&model.Worker{}).Error
}

// DeleteByIDs removes specific assignment rows. The card service passes row
// IDs taken from its pre-call snapshot, so rows inserted by the add phase of
// the same call are never touched by the remove phase.
func (r *WorkerRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Worker{}).Error
}
