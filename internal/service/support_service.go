package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/repository"
)

var ErrSupportMessageNotFound = errors.New("support message not found")

type SupportService struct {
	supportRepo *repository.SupportRepository
}

func NewSupportService(supportRepo *repository.SupportRepository) *SupportService {
	return &SupportService{supportRepo: supportRepo}
}

func (s *SupportService) Create(userID int64, subject, body string) (*model.SupportMessage, error) {
	msg := &model.SupportMessage{
		UserID:  userID,
		Subject: subject,
		Body:    body,
		Status:  model.SupportStatusOpen,
	}
	if err := s.supportRepo.Create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *SupportService) ListForUser(userID int64) ([]model.SupportMessage, error) {
	return s.supportRepo.ListByUser(userID)
}

func (s *SupportService) List(status string, page, pageSize int) ([]model.SupportMessage, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.supportRepo.List(status, page, pageSize)
}

func (s *SupportService) Resolve(id int64, reply string) error {
	if _, err := s.supportRepo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSupportMessageNotFound
		}
		return err
	}
	return s.supportRepo.Resolve(id, reply)
}
