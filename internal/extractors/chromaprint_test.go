package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromaprintFingerprinter_TooShort(t *testing.T) {
	f := NewChromaprintFingerprinter()
	fp, err := f.Compute(context.Background(), "passage.flac", 5.0)
	require.NoError(t, err)
	assert.Nil(t, fp)
}

func TestChromaprintFingerprinter_BinaryNotFound(t *testing.T) {
	f := &ChromaprintFingerprinter{BinaryPath: "fpcalc-definitely-does-not-exist-binary"}
	fp, err := f.Compute(context.Background(), "passage.flac", 30.0)
	require.NoError(t, err)
	assert.Nil(t, fp)
}

func TestParseFpcalcOutput(t *testing.T) {
	output := []byte("DURATION=183\nFINGERPRINT=AQAAjEmY...\n")
	fp, err := parseFpcalcOutput(output)
	require.NoError(t, err)
	assert.Equal(t, 183, fp.DurationSeconds)
	assert.Equal(t, "AQAAjEmY...", fp.Value)
}

func TestParseFpcalcOutput_Empty(t *testing.T) {
	fp, err := parseFpcalcOutput([]byte(""))
	require.Error(t, err)
	assert.Nil(t, fp)
}
