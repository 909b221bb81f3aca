package slug

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Electronics", "electronics"},
		{"ampersand dropped", "Home & Garden", "home-garden"},
		{"accents", "Eletrônicos e Acessórios", "eletronicos-e-acessorios"},
		{"punctuation runs", "  Books -- Used!!  ", "books-used"},
		{"digits", "Top 10 Gifts", "top-10-gifts"},
		{"ligature", "Straße", "strasse"},
		{"at sign", "Mail@Home", "mail-at-home"},
		{"nothing usable", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.input))
		})
	}
}

func TestMake_TruncatesWithoutTrailingDash(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "abc "
	}
	got := Make(long)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.NotEqual(t, byte('-'), got[len(got)-1])
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("home-garden"))
	assert.False(t, Valid("Home Garden"))
	assert.False(t, Valid("-home"))
	assert.False(t, Valid(""))
}

func TestResolve_FreeBase(t *testing.T) {
	got, err := ResolveAgainst("shoes", []string{"boots", "shoes-1"})
	require.NoError(t, err)
	assert.Equal(t, "shoes", got)
}

func TestResolve_FirstFreeSuffixWins(t *testing.T) {
	got, err := ResolveAgainst("shoes", []string{"shoes", "shoes-1", "shoes-3"})
	require.NoError(t, err)
	assert.Equal(t, "shoes-2", got)
}

func TestResolve_SuffixesStrictlyIncrease(t *testing.T) {
	var tried []string
	_, err := Resolve("x", func(candidate string) bool {
		tried = append(tried, candidate)
		return len(tried) < 4
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x-1", "x-2", "x-3"}, tried)
}

func TestResolve_Exhausted(t *testing.T) {
	_, err := Resolve("x", func(string) bool { return true })
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestResolve_SequentialCreatesAreDistinct(t *testing.T) {
	var existing []string
	for i := 0; i < 5; i++ {
		got, err := ResolveAgainst(Make("Summer Sale"), existing)
		require.NoError(t, err)
		assert.NotContains(t, existing, got)
		existing = append(existing, got)
	}
	assert.Equal(t, "summer-sale", existing[0])
	for i := 1; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("summer-sale-%d", i), existing[i])
	}
}
