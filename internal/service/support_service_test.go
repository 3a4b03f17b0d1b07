package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kromio/kromio-server/internal/model"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/testutil"
)

func setupSupportService(t *testing.T) (*SupportService, *repository.SupportRepository) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	repo := repository.NewSupportRepository(db)
	return NewSupportService(repo), repo
}

func TestSupportService_CreateAndList(t *testing.T) {
	service, _ := setupSupportService(t)

	msg, err := service.Create(1, "Billing question", "Why was I charged twice?")
	require.NoError(t, err)
	assert.Equal(t, model.SupportStatusOpen, msg.Status)

	_, err = service.Create(2, "Other", "Unrelated")
	require.NoError(t, err)

	mine, err := service.ListForUser(1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Billing question", mine[0].Subject)
}

func TestSupportService_Resolve(t *testing.T) {
	service, repo := setupSupportService(t)

	msg, err := service.Create(1, "Billing question", "Why was I charged twice?")
	require.NoError(t, err)

	require.NoError(t, service.Resolve(msg.ID, "Refunded the duplicate charge."))

	stored, err := repo.GetByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SupportStatusResolved, stored.Status)
	require.NotNil(t, stored.AdminReply)
	assert.Equal(t, "Refunded the duplicate charge.", *stored.AdminReply)

	assert.ErrorIs(t, service.Resolve(999999, "nope"), ErrSupportMessageNotFound)
}

func TestSupportService_ListByStatus(t *testing.T) {
	service, _ := setupSupportService(t)

	open, err := service.Create(1, "Open one", "body")
	require.NoError(t, err)
	resolved, err := service.Create(1, "Resolved one", "body")
	require.NoError(t, err)
	require.NoError(t, service.Resolve(resolved.ID, "done"))

	msgs, total, err := service.List(model.SupportStatusOpen, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, msgs, 1)
	assert.Equal(t, open.ID, msgs[0].ID)

	// Empty status returns everything.
	_, total, err = service.List("", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
