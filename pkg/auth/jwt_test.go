package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken("alice", "Alice the Brave")
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice the Brave", claims.DisplayName)
	assert.Equal(t, "alice", claims.Subject)
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer("one", time.Hour).GenerateToken("alice", "")
	require.NoError(t, err)

	_, err = NewIssuer("two", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Nanosecond)
	token, err := issuer.GenerateToken("alice", "")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = issuer.ValidateToken(token)
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFrom(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Username: "bob"})
	claims, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "bob", claims.Username)
}
