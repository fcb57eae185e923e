package utils

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationUS(t *testing.T) {
	d := 1234*time.Microsecond + 567*time.Nanosecond
	got := DurationUS(d)
	if math.Abs(got-1234.567) > 0.001 {
		t.Fatalf("want 1234.567µs, got %.3f", got)
	}
}

func TestPrintTimingStats(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	defer func() { Output, Verbose = oldOut, oldVerbose }()
	Output = &buf

	stats := &TimingStats{
		TotalTime:        4 * time.Second,
		ForwardPassTime:  time.Second,
		BackwardPassTime: 2 * time.Second,
		Samples:          4,
	}

	Verbose = false
	PrintTimingStats(stats, 2)
	assert.Zero(t, buf.Len())

	Verbose = true
	PrintTimingStats(stats, 2)
	out := buf.String()
	assert.Contains(t, out, "Epochs completed: 2")
	assert.Contains(t, out, "Forward pass: 1s (25.0%)")
	assert.Contains(t, out, "Backward pass: 2s (50.0%)")
	assert.Contains(t, out, "Average time per epoch: 2s")
}

func TestPrintTimingStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldVerbose := Output, Verbose
	defer func() { Output, Verbose = oldOut, oldVerbose }()
	Output, Verbose = &buf, true

	PrintTimingStats(&TimingStats{}, 0)
	assert.Contains(t, buf.String(), "Forward pass: 0s (0.0%)")
	assert.NotContains(t, buf.String(), "Average forward pass time")
}
