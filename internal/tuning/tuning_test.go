package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMaximumDecodeStreamsStaysWithinRegisteredRange(t *testing.T) {
	cases := []SystemInfo{
		{LogicalCores: 1},
		{LogicalCores: 4},
		{LogicalCores: 16},
		{LogicalCores: 128},
	}
	for _, s := range cases {
		n := s.DefaultMaximumDecodeStreams()
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 32)
	}
}

func TestDefaultImportWorkerCountPrefersPerformanceCores(t *testing.T) {
	s := SystemInfo{LogicalCores: 16, PerformanceCores: 8}
	assert.Equal(t, 8, s.DefaultImportWorkerCount())
}

func TestDefaultImportWorkerCountFallsBackToLogicalCores(t *testing.T) {
	s := SystemInfo{LogicalCores: 8, PerformanceCores: 0}
	assert.Equal(t, 8, s.DefaultImportWorkerCount())
}

func TestDefaultImportWorkerCountNeverReturnsZero(t *testing.T) {
	s := SystemInfo{LogicalCores: 0, PerformanceCores: 0}
	assert.Equal(t, 1, s.DefaultImportWorkerCount())
}

func TestProbeReturnsPositiveLogicalCoreCount(t *testing.T) {
	info := Probe()
	assert.Positive(t, info.LogicalCores)
}
