package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/jwt"
	"github.com/kromio/kromio-server/internal/pkg/oauth"
	"github.com/kromio/kromio-server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("email is already registered")
	ErrUsernameExists     = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email is not verified yet")
	ErrInvalidVerifyCode  = errors.New("verification code is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOAuthState  = errors.New("oauth state is invalid or expired")
)

// Mailer sends account emails. Nil disables sending (development mode).
type Mailer interface {
	SendVerificationCode(to, code string) error
}

type AuthService struct {
	userRepo    *repository.UserRepository
	cfg         *config.Config
	mailer      Mailer
	states      *oauth.StateStore
	githubOAuth *oauth.GithubOAuth
}

func NewAuthService(userRepo *repository.UserRepository, mailer Mailer, states *oauth.StateStore, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		mailer:   mailer,
		states:   states,
		githubOAuth: oauth.NewGithubOAuth(
			cfg.OAuth.Github.ClientID,
			cfg.OAuth.Github.ClientSecret,
			cfg.OAuth.Github.RedirectURI,
		),
	}
}

// Register creates an account on the free plan and mails the verification
// code.
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	exists, err = s.userRepo.ExistsByUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	verifyCode, err := generateRandomCode(32)
	if err != nil {
		return nil, err
	}

	passwordStr := string(hashedPassword)
	expiresAt := time.Now().Add(24 * time.Hour)

	user := &model.User{
		Username:              req.Username,
		Email:                 &req.Email,
		PasswordHash:          &passwordStr,
		DisplayName:           req.Username,
		Plan:                  config.PlanFree,
		VerificationCode:      &verifyCode,
		VerificationExpiresAt: &expiresAt,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerificationCode(req.Email, verifyCode); err != nil {
			log.Printf("Failed to send verification mail to user %d: %v", user.ID, err)
		}
	} else if s.cfg.Server.Mode == "debug" {
		// Development shortcut: no mailer wired, verify immediately.
		user.EmailVerified = true
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}

	return &dto.RegisterResponse{UserID: user.ID}, nil
}

// Login checks credentials and returns a signed token.
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  toProfile(user),
	}, nil
}

// VerifyEmail redeems a verification code.
func (s *AuthService) VerifyEmail(code string) error {
	user, err := s.userRepo.GetByVerificationCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidVerifyCode
		}
		return err
	}

	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return ErrInvalidVerifyCode
	}

	return s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"email_verified":          true,
		"verification_code":       nil,
		"verification_expires_at": nil,
	})
}

// GithubAuthURL issues a single-use CSRF state and returns the authorization
// redirect. redirectURI is where the frontend wants the user back afterwards.
func (s *AuthService) GithubAuthURL(ctx context.Context, redirectURI string) (string, error) {
	state, err := s.states.Issue(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.AuthURL(state), nil
}

// GithubCallback signs the user in via GitHub, creating the account on first
// login. The state must be one this server issued and not yet redeemed.
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, error) {
	redirectURI, err := s.states.Redeem(ctx, state)
	if err != nil {
		if errors.Is(err, oauth.ErrBadState) {
			return nil, ErrInvalidOAuthState
		}
		return nil, err
	}

	ghUser, err := s.githubOAuth.FetchUser(ctx, code)
	if err != nil {
		return nil, err
	}

	githubID := fmt.Sprintf("%d", ghUser.ID)
	user, err := s.userRepo.GetByGithubID(githubID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user, err = s.createGithubUser(ghUser, githubID)
		if err != nil {
			return nil, err
		}
	}

	jwtToken, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:       jwtToken,
		User:        toProfile(user),
		RedirectURI: redirectURI,
	}, nil
}

func (s *AuthService) createGithubUser(ghUser *oauth.GithubUser, githubID string) (*model.User, error) {
	username := ghUser.Login
	if exists, err := s.userRepo.ExistsByUsername(username); err != nil {
		return nil, err
	} else if exists {
		username = fmt.Sprintf("%s_%s", ghUser.Login, githubID)
	}

	displayName := ghUser.Name
	if displayName == "" {
		displayName = ghUser.Login
	}

	user := &model.User{
		Username:      username,
		GithubID:      &githubID,
		DisplayName:   displayName,
		AvatarURL:     ghUser.AvatarURL,
		Plan:          config.PlanFree,
		EmailVerified: true, // GitHub already verified the address
	}
	if ghUser.Email != "" {
		user.Email = &ghUser.Email
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile returns the public view of a user.
func (s *AuthService) GetProfile(userID int64) (*dto.UserProfile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toProfile(user), nil
}

func toProfile(user *model.User) *dto.UserProfile {
	profile := &dto.UserProfile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Plan:        user.Plan,
		IsAdmin:     user.IsAdmin,
	}
	if user.Email != nil {
		profile.Email = *user.Email
	}
	return profile
}

func generateRandomCode(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
