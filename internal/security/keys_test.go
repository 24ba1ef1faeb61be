package security

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct{ n int }

func (f fixedSource) IntN(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

func TestKeyGeneratorAlphabetAndLength(t *testing.T) {
	gen := NewKeyGenerator(rand.New(rand.NewPCG(1, 2)))
	pattern := regexp.MustCompile(`^[A-Z0-9]+$`)

	for i := 0; i < 50; i++ {
		access := gen.AccessKey()
		master := gen.MasterKey()
		assert.Len(t, access, AccessKeyLength)
		assert.Len(t, master, MasterKeyLength)
		assert.Regexp(t, pattern, access)
		assert.Regexp(t, pattern, master)
	}
}

func TestKeyGeneratorDefaultSource(t *testing.T) {
	gen := NewKeyGenerator(nil)
	assert.Len(t, gen.AccessKey(), AccessKeyLength)
}

func TestUsername(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	gen := NewKeyGenerator(fixedSource{n: 0})
	assert.Equal(t, "MET2510000", gen.Username("Metro Link", date, 0))
	assert.Equal(t, "MET2510002", gen.Username("metro", date, 2))
	assert.Equal(t, "AB2510000", gen.Username("ab", date, 0), "short names keep what they have")

	gen = NewKeyGenerator(fixedSource{n: 89999})
	assert.Equal(t, "BUS2599999", gen.Username("Bus Co", date, 0))

	assert.Equal(t, "VAN0510000", NewKeyGenerator(fixedSource{}).Username("Vanpool", time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC), 0))
}

func TestHashKey(t *testing.T) {
	digest := HashKey("pepper", "ABCD1234")
	require.NotEmpty(t, digest)
	assert.NotContains(t, digest, "ABCD1234")
	assert.True(t, VerifyKey("pepper", "ABCD1234", digest))
	assert.False(t, VerifyKey("pepper", "ABCD1235", digest))
	assert.False(t, VerifyKey("other", "ABCD1234", digest))
	assert.False(t, VerifyKey("pepper", "ABCD1234", ""))

	assert.Equal(t, "1234", KeyHint("ABCD1234"))
	assert.Equal(t, "AB", KeyHint("AB"))
}
