package security

import (
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	keyAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AccessKeyLength = 8
	MasterKeyLength = 10
	keyHintLength   = 4
)

// IntSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

// KeyGenerator issues operator-facing credentials. Keys are not checked
// for collisions against issued ones.
type KeyGenerator struct {
	mu  sync.Mutex
	src IntSource
}

func NewKeyGenerator(src IntSource) *KeyGenerator {
	if src == nil {
		src = newSeededSource()
	}
	return &KeyGenerator{src: src}
}

func newSeededSource() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("seed key generator: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

func (g *KeyGenerator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.src.IntN(n)
}

func (g *KeyGenerator) key(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(keyAlphabet[g.intN(len(keyAlphabet))])
	}
	return b.String()
}

// AccessKey returns 8 characters from [A-Z0-9].
func (g *KeyGenerator) AccessKey() string {
	return g.key(AccessKeyLength)
}

// MasterKey returns 10 characters from [A-Z0-9]; organizations only.
func (g *KeyGenerator) MasterKey() string {
	return g.key(MasterKeyLength)
}

// Username builds NNNYYXXXXX: up to three upper-cased leading characters of
// name, the two-digit year of date, and 10000+rand(90000)+index. index
// spreads a batch apart but does not guarantee uniqueness.
func (g *KeyGenerator) Username(name string, date time.Time, index int) string {
	runes := []rune(name)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	prefix := strings.ToUpper(string(runes))
	year := date.Year() % 100
	suffix := 10000 + g.intN(90000) + index
	return fmt.Sprintf("%s%02d%d", prefix, year, suffix)
}

// HashKey returns the digest stored in place of an issued key.
func HashKey(pepper string, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyKey(pepper string, key string, digest string) bool {
	if digest == "" {
		return false
	}
	return hmac.Equal([]byte(HashKey(pepper, key)), []byte(digest))
}

// KeyHint is the short suffix shown in listings so operators can tell keys apart.
func KeyHint(key string) string {
	if len(key) <= keyHintLength {
		return key
	}
	return key[len(key)-keyHintLength:]
}
