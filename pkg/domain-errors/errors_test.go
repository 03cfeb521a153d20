package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeMissingConsent, "consent required")
		assert.True(t, HasCode(err, CodeMissingConsent))
		assert.False(t, HasCode(err, CodeStorage))
	})

	t.Run("matches wrapped code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeStorage, "insert failed")
		outer := fmt.Errorf("grant consent: %w", Wrap(inner, CodeInternal, "ledger write"))
		assert.True(t, HasCode(outer, CodeStorage))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "dup")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("raw")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(errors.New("connection refused"), CodeStorage, "save score")
	assert.Equal(t, "save score: connection refused", err.Error())
	assert.ErrorIs(t, err, err.Err)
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:    http.StatusBadRequest,
		CodeMissingConsent:  http.StatusForbidden,
		CodeConsentNotFound: http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeStorage:         http.StatusInternalServerError,
		CodeUnauthorized:    http.StatusUnauthorized,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), string(code))
	}
}
