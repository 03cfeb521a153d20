package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fintrust/pkg/domain-errors"
)

func TestParseToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer")

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.IssueToken("subj-1", "a@example.com", time.Hour)
		require.NoError(t, err)

		claims, err := svc.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "subj-1", claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	expired, err := svc.IssueToken("subj-1", "", -time.Hour)
	require.NoError(t, err)
	foreign, err := NewJWTService("test-signing-key", "someone-else").IssueToken("subj-1", "", time.Hour)
	require.NoError(t, err)
	wrongKey, err := NewJWTService("other-key", "test-issuer").IssueToken("subj-1", "", time.Hour)
	require.NoError(t, err)
	noSubject, err := svc.IssueToken("", "", time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		token string
		msg   string
	}{
		"garbage":      {"invalid-token-string", "invalid token"},
		"expired":      {expired, "token has expired"},
		"wrong issuer": {foreign, "invalid token"},
		"wrong key":    {wrongKey, "invalid token"},
		"no subject":   {noSubject, "token has no subject"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseToken(tc.token)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.Equal(t, tc.msg, dErrors.MessageOf(err))
		})
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer")
	token, err := svc.IssueToken("subj-9", "z@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "subj-9", claims.SubjectID)
	assert.Equal(t, "z@example.com", claims.Email)
}
