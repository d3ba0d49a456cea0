package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTokenIssuerRequiresSecrets(t *testing.T) {
	_, err := NewTokenIssuer("", "refresh", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("access", "", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("same", "same", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	require.NoError(t, err)
}

func TestIssueMintsFreshTokenID(t *testing.T) {
	issuer, err := NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	require.NoError(t, err)

	first, err := issuer.IssueAccess("user-1", "a@x.com")
	require.NoError(t, err)
	second, err := issuer.IssueAccess("user-1", "a@x.com")
	require.NoError(t, err)

	// same subject, same instant, still never bit-identical
	require.NotEqual(t, first, second)

	firstClaims, err := issuer.AccessVerifier().Verify(first)
	require.NoError(t, err)
	secondClaims, err := issuer.AccessVerifier().Verify(second)
	require.NoError(t, err)
	require.NotEmpty(t, firstClaims.TokenID)
	require.NotEqual(t, firstClaims.TokenID, secondClaims.TokenID)
	require.Equal(t, "user-1", firstClaims.UserID)
	require.Equal(t, "a@x.com", firstClaims.Email)
}

func TestVerifierRejectsOtherTokenClass(t *testing.T) {
	issuer, err := NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	require.NoError(t, err)

	access, err := issuer.IssueAccess("user-1", "a@x.com")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = issuer.AccessVerifier().Verify(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.RefreshVerifier().Verify(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("access", "refresh", -time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := issuer.IssueAccess("user-1", "a@x.com")
	require.NoError(t, err)

	_, err = issuer.AccessVerifier().Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	issuer, err := NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	require.NoError(t, err)

	for _, tokenString := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.AccessVerifier().Verify(tokenString)
		require.ErrorIs(t, err, ErrTokenInvalid)
	}
}
