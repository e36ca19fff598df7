package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certnexus/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewService("test-signing-key")

	t.Run("accepts a freshly signed officer token", func(t *testing.T) {
		raw, err := svc.Sign("officer-1", RoleOfficer, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(raw)
		require.NoError(t, err)
		assert.Equal(t, "officer-1", claims.Subject)
		assert.Equal(t, RoleOfficer, claims.Role)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		raw, err := svc.Sign("officer-1", RoleOfficer, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		other := NewService("another-key")
		raw, err := other.Sign("officer-1", RoleOfficer, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}
