package utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeflow/internal/dto"
	apperrors "freeflow/pkg/errors"
)

func TestGetUserIDFromCtx(t *testing.T) {
	_, err := GetUserIDFromCtx(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = GetUserIDFromCtx(WithClaims(context.Background(), &dto.UserClaims{}))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "nil uuid is not a user")

	id := uuid.New()
	got, err := GetUserIDFromCtx(WithClaims(context.Background(), &dto.UserClaims{UserID: id}))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("s3cret-release")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-release", hash)
	assert.True(t, SecretMatches(hash, "s3cret-release"))
	assert.False(t, SecretMatches(hash, "wrong"))
	assert.False(t, SecretMatches("", "s3cret-release"))

	_, err = HashSecret("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
