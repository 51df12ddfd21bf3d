package auth

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

func TestNewTokenCodec_RejectsWrongKeySize(t *testing.T) {
	_, err := NewTokenCodec([]byte("too short"))
	require.Error(t, err)

	_, err = NewTokenCodec(bytes.Repeat([]byte("x"), 64))
	require.Error(t, err)

	_, err = NewTokenCodec(testKey())
	require.NoError(t, err)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec, err := NewTokenCodec(testKey())
	require.NoError(t, err)

	claims := SessionClaims{
		Email:        "alice@example.com",
		UserID:       uuid.New(),
		Name:         "Alice",
		PartnerEmail: "bob@example.com",
	}

	token, err := codec.Issue(claims, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got := codec.Verify(token)
	require.NotNil(t, got)
	assert.Equal(t, claims, *got)
}

func TestTokenCodec_Verify_RejectsTamperedToken(t *testing.T) {
	codec, err := NewTokenCodec(testKey())
	require.NoError(t, err)

	token, err := codec.Issue(SessionClaims{
		Email:  "alice@example.com",
		UserID: uuid.New(),
		Name:   "Alice",
	}, time.Hour)
	require.NoError(t, err)

	// Flipping any single byte of the ciphertext must kill the token
	raw := []byte(token)
	raw[len(raw)/2] ^= 0x01

	assert.Nil(t, codec.Verify(string(raw)))
}

func TestTokenCodec_Verify_RejectsWrongKey(t *testing.T) {
	codec, err := NewTokenCodec(testKey())
	require.NoError(t, err)

	other, err := NewTokenCodec(bytes.Repeat([]byte("z"), 32))
	require.NoError(t, err)

	token, err := codec.Issue(SessionClaims{
		Email:  "alice@example.com",
		UserID: uuid.New(),
		Name:   "Alice",
	}, time.Hour)
	require.NoError(t, err)

	assert.NotNil(t, codec.Verify(token))
	assert.Nil(t, other.Verify(token))
}

func TestTokenCodec_Verify_RejectsExpiredToken(t *testing.T) {
	codec, err := NewTokenCodec(testKey())
	require.NoError(t, err)

	token, err := codec.Issue(SessionClaims{
		Email:  "alice@example.com",
		UserID: uuid.New(),
		Name:   "Alice",
	}, -time.Minute)
	require.NoError(t, err)

	assert.Nil(t, codec.Verify(token))
}

func TestTokenCodec_Verify_RejectsGarbage(t *testing.T) {
	codec, err := NewTokenCodec(testKey())
	require.NoError(t, err)

	for _, input := range []string{"", "not a token", "v4.local.AAAA"} {
		assert.Nil(t, codec.Verify(input), "input %q", input)
	}
}
