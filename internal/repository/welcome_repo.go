package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
)

type WelcomeRepository struct {
	db *gorm.DB
}

func NewWelcomeRepository(db *gorm.DB) *WelcomeRepository {
	return &WelcomeRepository{db: db}
}

func (r *WelcomeRepository) Exists(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.WelcomeEmail{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *WelcomeRepository) Record(userID int64, email string) error {
	return r.db.Create(&model.WelcomeEmail{
		UserID: userID,
		Email:  email,
		SentAt: time.Now(),
	}).Error
}
