package repository

import (
	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
)

type PlanChangeRepository struct {
	db *gorm.DB
}

func NewPlanChangeRepository(db *gorm.DB) *PlanChangeRepository {
	return &PlanChangeRepository{db: db}
}

func (r *PlanChangeRepository) Create(change *model.PlanChange) error {
	return r.db.Create(change).Error
}

func (r *PlanChangeRepository) SetState(id int64, state string, detail string) error {
	fields := map[string]interface{}{"state": state}
	if detail != "" {
		fields["detail"] = detail
	}
	return r.db.Model(&model.PlanChange{}).Where("id = ?", id).Updates(fields).Error
}

func (r *PlanChangeRepository) SetSubscription(id, subscriptionID int64) error {
	return r.db.Model(&model.PlanChange{}).Where("id = ?", id).
		Update("subscription_id", subscriptionID).Error
}

// ListByState returns change logs in the given state, oldest first, for the
// reconciliation sweep.
func (r *PlanChangeRepository) ListByState(state string) ([]model.PlanChange, error) {
	var changes []model.PlanChange
	err := r.db.Where("state = ?", state).Order("created_at ASC").Find(&changes).Error
	return changes, err
}

func (r *PlanChangeRepository) CountByState(state string) (int64, error) {
	var count int64
	err := r.db.Model(&model.PlanChange{}).Where("state = ?", state).Count(&count).Error
	return count, err
}
