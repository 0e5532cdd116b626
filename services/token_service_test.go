package services

import (
	"testing"
	"time"

	"nfl-pickem-live/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	tokens := NewTokenService("test-secret", time.Hour)

	signed, err := tokens.Issue(42, "Dana", true)
	require.NoError(t, err)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "Dana", claims.Name)
	assert.True(t, claims.Admin)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	t.Parallel()
	signed, err := NewTokenService("one", time.Hour).Issue(42, "Dana", false)
	require.NoError(t, err)

	_, err = NewTokenService("two", time.Hour).Validate(signed)
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestTokenRejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := NewTokenService("one", time.Hour).Validate("not-a-token")
	assert.Error(t, err)
}
