package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kromio/kromio-server/config"
	"github.com/kromio/kromio-server/internal/model/dto"
	"github.com/kromio/kromio-server/internal/pkg/oauth"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/testutil"
)

// recordingMailer captures outgoing verification codes instead of sending.
type recordingMailer struct {
	codes map[string]string
}

func (m *recordingMailer) SendVerificationCode(to, code string) error {
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

func setupAuthService(t *testing.T) (*AuthService, *gorm.DB, *recordingMailer) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mailer := &recordingMailer{}
	cfg := testConfig()
	cfg.JWT = config.JWTConfig{Secret: "test-secret-key", ExpireHours: 24}

	service := NewAuthService(repository.NewUserRepository(db), mailer, oauth.NewStateStore(rdb), cfg)
	return service, db, mailer
}

func TestAuthService_Register(t *testing.T) {
	service, db, mailer := setupAuthService(t)

	resp, err := service.Register(&dto.RegisterRequest{
		Email:    "new@example.com",
		Username: "newuser",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)

	user, err := repository.NewUserRepository(db).GetByID(resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, config.PlanFree, user.Plan)
	assert.False(t, user.EmailVerified)
	require.NotNil(t, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("password123")))

	// A verification code went out to the right address.
	assert.NotEmpty(t, mailer.codes["new@example.com"])
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service, db, _ := setupAuthService(t)
	testutil.TestUser(t, db, testutil.WithEmail("taken@example.com"))

	_, err := service.Register(&dto.RegisterRequest{
		Email:    "taken@example.com",
		Username: "someoneelse",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	service, db, _ := setupAuthService(t)
	testutil.TestUser(t, db, testutil.WithUsername("taken"))

	_, err := service.Register(&dto.RegisterRequest{
		Email:    "fresh@example.com",
		Username: "taken",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestAuthService_VerifyEmailThenLogin(t *testing.T) {
	service, _, mailer := setupAuthService(t)

	_, err := service.Register(&dto.RegisterRequest{
		Email:    "new@example.com",
		Username: "newuser",
		Password: "password123",
	})
	require.NoError(t, err)

	// Unverified accounts cannot log in yet.
	_, err = service.Login(&dto.LoginRequest{Email: "new@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, service.VerifyEmail(mailer.codes["new@example.com"]))

	resp, err := service.Login(&dto.LoginRequest{Email: "new@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "newuser", resp.User.Username)
}

func TestAuthService_VerifyEmail_InvalidCode(t *testing.T) {
	service, _, _ := setupAuthService(t)

	err := service.VerifyEmail("no-such-code")
	assert.ErrorIs(t, err, ErrInvalidVerifyCode)
}

func TestAuthService_VerifyEmail_ExpiredCode(t *testing.T) {
	service, db, mailer := setupAuthService(t)

	resp, err := service.Register(&dto.RegisterRequest{
		Email:    "slow@example.com",
		Username: "slowpoke",
		Password: "password123",
	})
	require.NoError(t, err)

	// Age the code past its 24h window.
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, repository.NewUserRepository(db).UpdateFields(resp.UserID,
		map[string]interface{}{"verification_expires_at": expired}))

	err = service.VerifyEmail(mailer.codes["slow@example.com"])
	assert.ErrorIs(t, err, ErrInvalidVerifyCode)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	service, _, mailer := setupAuthService(t)

	_, err := service.Register(&dto.RegisterRequest{
		Email:    "new@example.com",
		Username: "newuser",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NoError(t, service.VerifyEmail(mailer.codes["new@example.com"]))

	_, err = service.Login(&dto.LoginRequest{Email: "new@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	service, _, _ := setupAuthService(t)

	_, err := service.Login(&dto.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GithubAuthURL_CarriesIssuedState(t *testing.T) {
	service, _, _ := setupAuthService(t)

	url, err := service.GithubAuthURL(context.Background(), "https://app.kromio.dev/dashboard")
	require.NoError(t, err)
	assert.Contains(t, url, "github.com/login/oauth/authorize")
	assert.Contains(t, url, "state=")
}

func TestAuthService_GithubCallback_RejectsForgedState(t *testing.T) {
	service, _, _ := setupAuthService(t)

	// State never issued by this server: rejected before any GitHub call.
	_, err := service.GithubCallback(context.Background(), "some-code", "forged-state")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)

	_, err = service.GithubCallback(context.Background(), "some-code", "")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)
}

func TestAuthService_GetProfile(t *testing.T) {
	service, db, _ := setupAuthService(t)
	user := testutil.TestUser(t, db, testutil.WithUsername("profiled"), testutil.WithPlan(config.PlanPro))

	profile, err := service.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "profiled", profile.Username)
	assert.Equal(t, config.PlanPro, profile.Plan)

	_, err = service.GetProfile(999999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
