package password

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)

	hash, err := h.Hash(context.Background(), "Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, Verify(hash, "Sup3rSecret"))
	assert.False(t, Verify(hash, "sup3rsecret"))
	assert.False(t, Verify(hash, ""))
}

func TestHashHonorsCancellation(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)

	// Exhaust the only slot, then a canceled context must fail fast.
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Hash(ctx, "Sup3rSecret")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Str0ngP4ssw0rd", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoDigitsHere", false},
		{"", false},
	}
	for _, tc := range cases {
		err := Validate(tc.password)
		if tc.ok {
			assert.NoError(t, err, tc.password)
		} else {
			assert.Error(t, err, tc.password)
		}
	}
}

func TestGenerateSatisfiesPolicy(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := Generate(16)
		require.NoError(t, err)
		assert.Len(t, pw, 16)
		assert.NoError(t, Validate(pw))
	}
}

func TestGenerateEnforcesMinimumLength(t *testing.T) {
	pw, err := Generate(3)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(pw), MinLength)
}
