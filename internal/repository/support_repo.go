package repository

import (
	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
)

type SupportRepository struct {
	db *gorm.DB
}

func NewSupportRepository(db *gorm.DB) *SupportRepository {
	return &SupportRepository{db: db}
}

func (r *SupportRepository) Create(msg *model.SupportMessage) error {
	return r.db.Create(msg).Error
}

func (r *SupportRepository) GetByID(id int64) (*model.SupportMessage, error) {
	var msg model.SupportMessage
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *SupportRepository) ListByUser(userID int64) ([]model.SupportMessage, error) {
	var msgs []model.SupportMessage
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&msgs).Error
	return msgs, err
}

func (r *SupportRepository) List(status string, page, pageSize int) ([]model.SupportMessage, int64, error) {
	query := r.db.Model(&model.SupportMessage{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []model.SupportMessage
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *SupportRepository) Resolve(id int64, reply string) error {
	return r.db.Model(&model.SupportMessage{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      model.SupportStatusResolved,
		"admin_reply": reply,
	}).Error
}

func (r *SupportRepository) CountOpen() (int64, error) {
	var count int64
	err := r.db.Model(&model.SupportMessage{}).
		Where("status = ?", model.SupportStatusOpen).
		Count(&count).Error
	return count, err
}
