package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAlgorithms(t *testing.T) {
	sha := NewHasher(SHA256).HashString("satchel")
	blake := NewHasher(BLAKE2b).HashString("satchel")

	assert.Len(t, sha, 64)
	assert.Len(t, blake, 64)
	assert.NotEqual(t, sha, blake)
	assert.Equal(t, blake, DefaultHasher().HashString("satchel"))
}

func TestHashReaderMatchesHash(t *testing.T) {
	h := DefaultHasher()

	got, err := h.HashReader(strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, h.HashString("payload"), got)
}

func TestHashFieldsOrderIndependent(t *testing.T) {
	h := DefaultHasher()
	assert.Equal(t, h.HashFields("a", "b"), h.HashFields("b", "a"))
}

func TestTreeDigestSeparatesNamesAndContent(t *testing.T) {
	h := DefaultHasher()

	a := h.NewTreeDigest()
	require.NoError(t, a.Add("ab", strings.NewReader("c")))

	b := h.NewTreeDigest()
	require.NoError(t, b.Add("a", strings.NewReader("bc")))

	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abcdefgh", ShortHash("abcdefghijkl"))
	assert.Equal(t, "abc", ShortHash("abc"))
}
