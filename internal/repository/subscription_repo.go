package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetActiveByUser returns the user's active subscription, or nil when the
// user has none (free plan).
func (r *SubscriptionRepository) GetActiveByUser(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND status = ?", userID, model.SubStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListActive() ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Where("status = ?", model.SubStatusActive).Find(&subs).Error
	return subs, err
}

// ListExpired returns active subscriptions whose period ended before now.
func (r *SubscriptionRepository) ListExpired(now time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Where("status = ? AND current_period_end < ?", model.SubStatusActive, now).
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Update("status", status).Error
}

func (r *SubscriptionRepository) Delete(id int64) error {
	return r.db.Delete(&model.Subscription{}, id).Error
}

func (r *SubscriptionRepository) CountActiveByPlan() (map[string]int64, error) {
	type row struct {
		Plan  string
		Count int64
	}
	var rows []row
	err := r.db.Model(&model.Subscription{}).
		Select("plan, COUNT(*) as count").
		Where("status = ?", model.SubStatusActive).
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Plan] = r.Count
	}
	return counts, nil
}
