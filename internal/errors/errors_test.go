package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableforge/rules-api/internal/errors"
)

func TestCodeConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  errors.Code
		check func(error) bool
	}{
		{"not found", errors.NotFound("missing"), errors.CodeNotFound, errors.IsNotFound},
		{"invalid argument", errors.InvalidArgument("bad"), errors.CodeInvalidArgument, errors.IsInvalidArgument},
		{"already exists", errors.AlreadyExists("dup"), errors.CodeAlreadyExists, errors.IsAlreadyExists},
		{"aborted", errors.Aborted("conflict"), errors.CodeAborted, errors.IsAborted},
		{"failed precondition", errors.FailedPrecondition("ended"), errors.CodeFailedPrecondition, errors.IsFailedPrecondition},
		{"resource exhausted", errors.ResourceExhausted("limit"), errors.CodeResourceExhausted, errors.IsResourceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errors.GetCode(tt.err))
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	base := errors.NotFoundf("character %s not found", "char-1")
	wrapped := errors.Wrap(base, "failed to load character")

	assert.Equal(t, errors.CodeNotFound, errors.GetCode(wrapped))
	assert.True(t, errors.IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "failed to load character")
}

func TestWrapWithCode(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := errors.WrapWithCode(cause, errors.CodeUnavailable, "narrator request failed")

	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestGetCodeOnForeignError(t *testing.T) {
	assert.Equal(t, errors.CodeInternal, errors.GetCode(fmt.Errorf("plain error")))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 404, errors.CodeNotFound.HTTPStatus())
	assert.Equal(t, 409, errors.CodeAborted.HTTPStatus())
	assert.Equal(t, 429, errors.CodeResourceExhausted.HTTPStatus())
	assert.Equal(t, 503, errors.CodeUnavailable.HTTPStatus())
	assert.Equal(t, 500, errors.Code("bogus").HTTPStatus())
}

func TestValidationBuilder(t *testing.T) {
	t.Run("nil when nothing failed", func(t *testing.T) {
		assert.NoError(t, errors.NewValidationBuilder().Build())
	})

	t.Run("collects field errors", func(t *testing.T) {
		err := errors.NewValidationBuilder().
			RequiredField("Catalog").
			Fieldf("TieBreak", "must be %q or %q", "player", "enemy").
			Build()

		require.Error(t, err)
		assert.True(t, errors.IsInvalidArgument(err))
		assert.Contains(t, err.Error(), "Catalog")
		assert.Contains(t, err.Error(), "TieBreak")
	})
}
