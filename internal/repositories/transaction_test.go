package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	apperrors "freeflow/pkg/errors"
)

func TestTranslateTxError(t *testing.T) {
	serialization := fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: pgSerializationFailure})
	assert.ErrorIs(t, translateTxError(serialization), apperrors.ErrConflict)

	other := &pgconn.PgError{Code: "23505"}
	assert.Equal(t, error(other), translateTxError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, translateTxError(plain))
}
