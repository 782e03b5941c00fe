package token

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigester(t *testing.T) {
	plain := NewDigester(nil)
	keyed := NewDigester([]byte(strings.Repeat("k", 32)))

	a := plain.Digest("session-id")
	b := keyed.Digest("session-id")
	assert.Len(t, a, 64)
	assert.Len(t, b, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, HashSHA256Hex("session-id"), a)

	assert.Equal(t, b, keyed.Digest("session-id"))
	assert.NotEqual(t, b, NewDigester([]byte(strings.Repeat("x", 32))).Digest("session-id"))
}

func TestNewOpaque(t *testing.T) {
	a, err := NewOpaque(32)
	require.NoError(t, err)
	b, err := NewOpaque(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestCheckKey(t *testing.T) {
	assert.ErrorIs(t, CheckKey(nil, MinKeyBytes), ErrKeyMissing)
	assert.ErrorIs(t, CheckKey([]byte("short"), MinKeyBytes), ErrKeyTooShort)
	assert.NoError(t, CheckKey([]byte(strings.Repeat("s", 32)), MinKeyBytes))

	k, err := RandomKey(0)
	require.NoError(t, err)
	assert.NoError(t, CheckKey(k, MinKeyBytes))
}
