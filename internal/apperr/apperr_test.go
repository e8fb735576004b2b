package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("accept invite: %w", Forbidden("Invite email does not match your account"))
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("connection refused")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestForbiddenDefaultMessage(t *testing.T) {
	assert.Equal(t, "Forbidden", Forbidden("").Message)
}

func TestFieldError(t *testing.T) {
	err := Field("email", "must be a valid email")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, []FieldError{{Field: "email", Message: "must be a valid email"}}, err.Fields)
	assert.Contains(t, err.Error(), "email")
}

func TestAs(t *testing.T) {
	e, ok := As(fmt.Errorf("wrap: %w", NotFound("Site not found")))
	assert.True(t, ok)
	assert.Equal(t, "Site not found", e.Message)

	_, ok = As(errors.New("x"))
	assert.False(t, ok)
}
