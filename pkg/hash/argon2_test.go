package hash

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHash_ProducesPHCString(t *testing.T) {
	h := NewPasswordHasher()

	encoded, err := h.Hash("password123")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))
	assert.Len(t, strings.Split(encoded, "$"), 6)
}

func TestVerify_RoundTrip(t *testing.T) {
	h := NewPasswordHasher()

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, h.Verify("correct horse battery staple", encoded))
	assert.False(t, h.Verify("correct horse battery stapl", encoded))
	assert.False(t, h.Verify("", encoded))
}

func TestHash_SamePasswordDifferentHashes(t *testing.T) {
	h := NewPasswordHasher()

	first, err := h.Hash("password123")
	require.NoError(t, err)
	second, err := h.Hash("password123")
	require.NoError(t, err)

	// Random salts mean two hashes of the same password never match.
	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("password123", first))
	assert.True(t, h.Verify("password123", second))
}

func TestVerify_MalformedHashIsFalseNotPanic(t *testing.T) {
	h := NewPasswordHasher()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=1,p=4$short",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=banana,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	}
	for _, encoded := range cases {
		assert.False(t, h.Verify("password123", encoded), "input: %q", encoded)
	}
}

func TestVerify_ParamsReadFromHash(t *testing.T) {
	h := NewPasswordHasher()

	// A hash produced with different cost parameters still verifies because
	// Verify recomputes with the embedded params, not the current defaults.
	salt := []byte("somesaltsomesalt")
	key := argon2.IDKey([]byte("password123"), salt, 2, 32*1024, 2, 32)
	legacy := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 32*1024, 2, 2,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	assert.True(t, h.Verify("password123", legacy))
	assert.False(t, h.Verify("password124", legacy))
}
