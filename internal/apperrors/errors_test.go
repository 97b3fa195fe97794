package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage_WrapsSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("insert registration", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert registration: connection reset", err.Error())
}

func TestStorage_NilAndAlreadyWrapped(t *testing.T) {
	assert.NoError(t, Storage("noop", nil))

	inner := Storage("inner", errors.New("boom"))
	assert.Same(t, inner, Storage("outer", inner))
}

func TestAppError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("commit: %w", RegistrationNotFound("abc"))

	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	assert.Equal(t, "registration abc not found", UserMessage(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"storage", Storage("op", errors.New("x")), true},
		{"configuration", Configuration("event %s has no calendar", "e1"), true},
		{"missing terminal", MissingTerminalResponse("finalisation"), true},
		{"cart closed", CartClosed("c1"), false},
		{"registration not found", RegistrationNotFound("r1"), false},
		{"plain", errors.New("email already registered"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("x: %w", ErrCartClosed)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidInput))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrStepNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Storage("op", errors.New("x"))))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(UnsubscribeNotAllowed("too late")))
}
