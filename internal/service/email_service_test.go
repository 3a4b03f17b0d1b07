package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/testutil"
)

type recordingWelcomeMailer struct {
	sent []string
}

func (m *recordingWelcomeMailer) SendWelcome(to, name string) error {
	m.sent = append(m.sent, to)
	return nil
}

func TestEmailService_SendWelcome_OncePerUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mailer := &recordingWelcomeMailer{}
	service := NewEmailService(repository.NewWelcomeRepository(db), mailer)

	require.NoError(t, service.SendWelcome(1, "new@example.com", "New User"))
	assert.Equal(t, []string{"new@example.com"}, mailer.sent)

	// Second attempt signals idempotency and does not mail again.
	err := service.SendWelcome(1, "new@example.com", "New User")
	assert.ErrorIs(t, err, ErrWelcomeAlreadySent)
	assert.Len(t, mailer.sent, 1)

	// A different user still gets theirs.
	require.NoError(t, service.SendWelcome(2, "other@example.com", "Other"))
	assert.Len(t, mailer.sent, 2)
}

func TestEmailService_SendWelcome_NilMailerStillRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewEmailService(repository.NewWelcomeRepository(db), nil)

	require.NoError(t, service.SendWelcome(1, "new@example.com", "New User"))
	assert.ErrorIs(t, service.SendWelcome(1, "new@example.com", "New User"), ErrWelcomeAlreadySent)
}
