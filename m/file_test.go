package m

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"classifiers/parallel"
	"classifiers/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func orSamples() Samples {
	return Samples{
		{Inputs: []float64{0, 0}, Targets: []float64{0}},
		{Inputs: []float64{0, 1}, Targets: []float64{1}},
		{Inputs: []float64{1, 0}, Targets: []float64{1}},
		{Inputs: []float64{1, 1}, Targets: []float64{1}},
	}
}

func TestReadSamples(t *testing.T) {
	in := "0.5,1,0\n-1, 2.25,1\n\n3,4,0\n"
	samples, err := ReadSamples(strings.NewReader(in), 2, 1)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, []float64{0.5, 1}, samples[0].Inputs)
	assert.Equal(t, []float64{0}, samples[0].Targets)
	assert.Equal(t, []float64{-1, 2.25}, samples[1].Inputs)
	assert.Equal(t, []float64{1}, samples[1].Targets)
	assert.Equal(t, []float64{3, 4}, samples[2].Inputs)
}

func TestReadSamplesInvalidLine(t *testing.T) {
	_, err := ReadSamples(strings.NewReader("1,2,3\n1,2\n"), 2, 1)
	var lineErr errInvalidLine
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.lineNum)
	assert.Equal(t, "at line 2, expected 3 values, got 2", err.Error())

	_, err = ReadSamples(strings.NewReader("1,x,3\n"), 2, 1)
	assert.ErrorContains(t, err, "parsing input")

	_, err = ReadSamples(strings.NewReader("1,2,y\n"), 2, 1)
	assert.ErrorContains(t, err, "parsing target")
}

func TestWithBias(t *testing.T) {
	samples := orSamples()
	biased := samples.WithBias(BiasNode)

	require.Len(t, biased, 4)
	assert.Equal(t, []float64{0, 1, -1}, biased[1].Inputs)
	assert.Equal(t, samples[1].Targets, biased[1].Targets)
	assert.Len(t, samples[1].Inputs, 2)
}

func TestNormalizeSamples(t *testing.T) {
	samples := Samples{
		{Inputs: []float64{1, 5}},
		{Inputs: []float64{3, 5}},
	}
	mean, std := CalculateMeanStdDev(samples)
	assert.Equal(t, []float64{2, 5}, mean)
	assert.InDeltaSlice(t, []float64{1, 0}, std, 1e-12)

	normalized := NormalizeSamples(samples, mean, std)
	assert.InDeltaSlice(t, []float64{-1, 0}, normalized[0].Inputs, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, normalized[1].Inputs, 1e-12)
	assert.Equal(t, []float64{1, 5}, samples[0].Inputs)

	mean, std = CalculateMeanStdDev(nil)
	assert.Nil(t, mean)
	assert.Nil(t, std)
}

func TestShuffle(t *testing.T) {
	samples := make(Samples, 20)
	for i := range samples {
		samples[i] = Sample{Inputs: []float64{float64(i)}}
	}
	Shuffle(samples, rand.NewSource(3))

	seen := make(map[float64]bool)
	moved := false
	for i, s := range samples {
		seen[s.Inputs[0]] = true
		if s.Inputs[0] != float64(i) {
			moved = true
		}
	}
	assert.Len(t, seen, 20)
	assert.True(t, moved)
}

func TestShuffleNilSource(t *testing.T) {
	samples := Samples{{Inputs: []float64{1}}, {Inputs: []float64{2}}}
	require.NotPanics(t, func() { Shuffle(samples, nil) })

	got := []float64{samples[0].Inputs[0], samples[1].Inputs[0]}
	assert.ElementsMatch(t, []float64{1, 2}, got)
}

func TestTrainSamples(t *testing.T) {
	net := newTestMLP(t, []int{3, 3, 1}, 0.5, 6)
	samples := orSamples().WithBias(BiasNode)

	stats := &utils.TimingStats{}
	first, err := net.TrainSamples(samples, stats)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Samples)

	var last float64
	for epoch := 0; epoch < 500; epoch++ {
		last, err = net.TrainSamples(samples, nil)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.Equal(t, 4, stats.Samples)
}

func TestTrainSamplesSizeMismatch(t *testing.T) {
	net := newTestMLP(t, []int{3, 3, 1}, 0.5, 6)

	_, err := net.TrainSamples(orSamples(), nil)
	assert.ErrorIs(t, err, ErrInputSize)

	bad := Samples{{Inputs: []float64{0, 0, -1}, Targets: []float64{0, 1}}}
	_, err = net.TrainSamples(bad, nil)
	assert.ErrorIs(t, err, ErrTargetSize)
}

func TestFitAndEvaluate(t *testing.T) {
	oldVerbose := utils.Verbose
	defer func() { utils.Verbose = oldVerbose }()
	utils.Verbose = false

	cfg := utils.Config{
		Architecture: []int{3, 3, 1},
		LearningRate: 0.5,
		Beta:         1,
		Epochs:       2000,
		Seed:         42,
	}
	samples := orSamples().WithBias(BiasNode)

	var log bytes.Buffer
	net, err := Fit(cfg, samples, Config{Verbose: true, Output: &log, Parallel: parallel.DefaultConfig()})
	require.NoError(t, err)
	assert.Contains(t, log.String(), "Epoch 2000 of 2000 complete")

	ev, err := net.Evaluate(samples, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Total)
	assert.Equal(t, 3, ev.Marked)
	assert.Equal(t, 1.0, ev.Accuracy())
	assert.Equal(t, 0.75, ev.MarkedFraction())
	assert.Greater(t, ev.MeanOutput, 0.5)
	assert.Contains(t, log.String(), "75% of samples classified as marked")
}

func TestFitInvalidConfig(t *testing.T) {
	_, err := Fit(utils.Config{Architecture: []int{2, 1}, LearningRate: 0.1, Beta: 1, Epochs: 1}, orSamples(), Config{})
	assert.Error(t, err)
}

func TestEvaluateEmpty(t *testing.T) {
	net := newTestMLP(t, []int{2, 2, 1}, 0.5, 1)
	ev, err := net.Evaluate(nil, 0.5)
	require.NoError(t, err)
	assert.Zero(t, ev.Accuracy())
	assert.Zero(t, ev.MarkedFraction())

	_, err = net.Evaluate(Samples{{Inputs: []float64{1}}}, 0.5)
	assert.ErrorIs(t, err, ErrInputSize)
}
