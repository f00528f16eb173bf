package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freeflow/internal/dto"
	"freeflow/internal/resources"
	apperrors "freeflow/pkg/errors"
)

func TestNotificationService(t *testing.T) {
	repo := newFakeRecordRepo()
	publisher := &fakePublisher{}
	svc, err := NewNotificationService(resources.DefaultRegistry(), repo, nil, publisher, zap.NewNop())
	require.NoError(t, err)

	owner := uuid.New()
	record, err := svc.Notify(context.Background(), owner, dto.NotificationDTO{
		Title:   "Invoice paid",
		Message: "INV-1 is now paid.",
		Type:    "invoices.paid",
		Data:    map[string]interface{}{"id": "i1"},
	})
	require.NoError(t, err)
	assert.Equal(t, owner.String(), record.String("user_id"))
	assert.Equal(t, false, record["is_read"])
	assert.Equal(t, []string{"notifications:INSERT"}, publisher.actions())

	_, err = svc.Notify(context.Background(), uuid.Nil, dto.NotificationDTO{Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Notify(context.Background(), owner, dto.NotificationDTO{Title: "second"})
	require.NoError(t, err)
	_, err = svc.Notify(context.Background(), uuid.New(), dto.NotificationDTO{Title: "not mine"})
	require.NoError(t, err)

	n, err := svc.MarkAllRead(authed(owner))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.MarkAllRead(authed(owner))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.MarkAllRead(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
