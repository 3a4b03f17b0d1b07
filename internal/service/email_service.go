package service

import (
	"errors"

	"github.com/kromio/kromio-server/internal/repository"
)

// ErrWelcomeAlreadySent signals the idempotent path: the mail went out
// earlier and is not re-sent.
var ErrWelcomeAlreadySent = errors.New("welcome email already sent")

// WelcomeMailer sends the welcome mail. Nil disables sending but the send is
// still recorded, keeping the endpoint idempotent in development.
type WelcomeMailer interface {
	SendWelcome(to, name string) error
}

type EmailService struct {
	welcomeRepo *repository.WelcomeRepository
	mailer      WelcomeMailer
}

func NewEmailService(welcomeRepo *repository.WelcomeRepository, mailer WelcomeMailer) *EmailService {
	return &EmailService{
		welcomeRepo: welcomeRepo,
		mailer:      mailer,
	}
}

// SendWelcome mails a new user exactly once per user id.
func (s *EmailService) SendWelcome(userID int64, email, name string) error {
	sent, err := s.welcomeRepo.Exists(userID)
	if err != nil {
		return err
	}
	if sent {
		return ErrWelcomeAlreadySent
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(email, name); err != nil {
			return err
		}
	}

	return s.welcomeRepo.Record(userID, email)
}
