// Package password handles credential hashing and the password policy.
//
// Hashing is CPU-bound, so the Hasher bounds the number of concurrent bcrypt
// computations with a weighted semaphore; a slow cost setting degrades only
// the hashing paths instead of saturating the whole process.
package password

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"runtime"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/meshwork-app/meshwork-api/pkg/observability"
)

const (
	// MinLength is the minimum accepted password length.
	MinLength = 8

	// DefaultCost is the production bcrypt cost. Tests use bcrypt.MinCost.
	DefaultCost = 13
)

// Hasher derives and verifies bcrypt hashes with bounded concurrency.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a Hasher with the given bcrypt cost. maxConcurrent caps
// simultaneous hash computations; zero or negative means GOMAXPROCS.
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash derives the bcrypt hash of a plaintext password. It blocks while the
// concurrency budget is exhausted and honors context cancellation while
// waiting.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("password: waiting for hash slot: %w", err)
	}
	defer h.sem.Release(1)

	start := time.Now()
	defer func() { observability.HashDuration.Observe(time.Since(start).Seconds()) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hashing failed: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash.
func Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Validate checks a plaintext password against the policy: at least MinLength
// characters including one lowercase letter, one uppercase letter and one
// digit.
func Validate(plaintext string) error {
	if len(plaintext) < MinLength {
		return fmt.Errorf("must be at least %d characters long", MinLength)
	}
	var lower, upper, digit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return fmt.Errorf("must include at least one number, one lowercase" +
			" letter and one uppercase letter")
	}
	return nil
}

const (
	lowerChars = "abcdefghijkmnopqrstuvwxyz"
	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars = "23456789"
	allChars   = lowerChars + upperChars + digitChars
)

// Generate produces a random password that always satisfies the policy. Used
// when a user is created without supplying one.
func Generate(length int) (string, error) {
	if length < MinLength {
		length = 2 * MinLength
	}

	// One guaranteed character per required class, the rest from the full
	// alphabet, then a shuffle so class positions are not predictable.
	chars := make([]byte, 0, length)
	for _, set := range []string{lowerChars, upperChars, digitChars} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := pick(allChars)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	for i := len(chars) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("password: generating random index: %w", err)
		}
		chars[i], chars[j.Int64()] = chars[j.Int64()], chars[i]
	}
	return string(chars), nil
}

func pick(set string) (byte, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("password: generating random character: %w", err)
	}
	return set[i.Int64()], nil
}
