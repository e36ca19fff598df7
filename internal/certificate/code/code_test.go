package code

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeShape = regexp.MustCompile(`^SPECS-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerate_Shape(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < 100; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, codeShape, code)
	}
}

func TestGenerate_Distinct(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s after %d draws", code, i)
		seen[code] = true
	}
}

func TestGenerate_DeterministicWithFixedEntropy(t *testing.T) {
	entropy := bytes.NewReader(make([]byte, 12))
	gen := NewGeneratorWithEntropy(entropy)

	code, err := gen.Generate()
	require.NoError(t, err)
	// Zero bytes map to the first alphabet character.
	assert.Equal(t, "SPECS-AAAA-AAAA-AAAA", code)
}

func TestGenerate_RejectsBiasedBytes(t *testing.T) {
	// 256 is not a multiple of 36, so bytes 252..255 must be discarded and
	// replaced by further draws instead of wrapping onto A..D.
	entropy := bytes.NewReader(append([]byte{252, 253, 254, 255, 251}, make([]byte, 11)...))
	gen := NewGeneratorWithEntropy(entropy)

	code, err := gen.Generate()
	require.NoError(t, err)
	// 251 maps to the last alphabet character, the remaining zeros to the first.
	assert.Equal(t, "SPECS-9AAA-AAAA-AAAA", code)
}

func TestGenerate_EntropyExhausted(t *testing.T) {
	entropy := bytes.NewReader([]byte{1, 2, 3})
	gen := NewGeneratorWithEntropy(entropy)

	_, err := gen.Generate()
	require.Error(t, err)
}
