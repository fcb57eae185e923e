package m

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"classifiers/utils"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// BiasNode is the value of the always-active input appended by WithBias.
const BiasNode = -1.0

// Sample is one training example: a feature vector and its target vector.
type Sample struct {
	Inputs  []float64
	Targets []float64
}
type Samples []Sample

// ReadSamples parses CSV records holding inputNum inputs followed by outputNum targets.
func ReadSamples(reader io.Reader, inputNum, outputNum int) (Samples, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var samples Samples
	var lineNum int
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return samples, fmt.Errorf("reading samples: %w", err)
		}
		lineNum++
		if len(record) != inputNum+outputNum {
			return samples, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(record),
				expected: inputNum + outputNum,
			}
		}

		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				if i < inputNum {
					return samples, fmt.Errorf("line %d: parsing input: %w", lineNum, err)
				}
				return samples, fmt.Errorf("line %d: parsing target: %w", lineNum, err)
			}
			values[i] = v
		}
		samples = append(samples, Sample{
			Inputs:  values[:inputNum:inputNum],
			Targets: values[inputNum:],
		})
	}
	return samples, nil
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// WithBias returns copies of the samples with bias appended to every input vector.
func (s Samples) WithBias(bias float64) Samples {
	out := make(Samples, len(s))
	for i, sample := range s {
		inputs := make([]float64, len(sample.Inputs)+1)
		copy(inputs, sample.Inputs)
		inputs[len(sample.Inputs)] = bias
		out[i] = Sample{Inputs: inputs, Targets: sample.Targets}
	}
	return out
}

// CalculateMeanStdDev returns the per-input population mean and standard deviation.
func CalculateMeanStdDev(samples Samples) (mean, std []float64) {
	if len(samples) == 0 {
		return nil, nil
	}

	numEntries := len(samples[0].Inputs)
	mean = make([]float64, numEntries)
	std = make([]float64, numEntries)
	column := make([]float64, len(samples))
	for i := 0; i < numEntries; i++ {
		for j, sample := range samples {
			column[j] = sample.Inputs[i]
		}
		mean[i], std[i] = stat.PopMeanStdDev(column, nil)
	}
	return mean, std
}

// NormalizeSamples z-scores every input. Constant inputs are only centered.
func NormalizeSamples(samples Samples, mean, std []float64) Samples {
	normalized := make(Samples, len(samples))
	for i, sample := range samples {
		inputs := make([]float64, len(sample.Inputs))
		for j, x := range sample.Inputs {
			inputs[j] = x - mean[j]
			if std[j] > 0 {
				inputs[j] /= std[j]
			}
		}
		normalized[i] = Sample{Inputs: inputs, Targets: sample.Targets}
	}
	return normalized
}

// Shuffle reorders samples in place. A nil src is seeded from the clock.
func Shuffle(samples Samples, src rand.Source) {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	rand.New(src).Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// TrainSamples runs one online pass over samples in order and returns the mean
// squared output error seen during the pass. Timings are added to stats when it is
// not nil.
func (net *MLP) TrainSamples(samples Samples, stats *utils.TimingStats) (float64, error) {
	var sum float64
	var count int
	for i, sample := range samples {
		start := time.Now()
		if err := net.FeedForward(sample.Inputs); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		forward := time.Since(start)

		outputs := net.layers[net.lastIndex()].RawVector().Data
		if len(sample.Targets) == len(outputs) {
			for k, a := range outputs {
				d := sample.Targets[k] - a
				sum += d * d
			}
			count += len(outputs)
		}

		start = time.Now()
		if err := net.BackPropagation(sample.Targets); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if stats != nil {
			stats.ForwardPassTime += forward
			stats.BackwardPassTime += time.Since(start)
			stats.Samples++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// Evaluation summarizes thresholded classification of the first output neuron.
type Evaluation struct {
	Total      int
	Marked     int // outputs above the threshold
	Correct    int // thresholded output agrees with the thresholded target
	MeanOutput float64
}

func (e Evaluation) MarkedFraction() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Marked) / float64(e.Total)
}

// Accuracy is the fraction of samples whose thresholded output matched the target.
func (e Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// Evaluate classifies every sample and compares output 0 against threshold.
func (net *MLP) Evaluate(samples Samples, threshold float64) (Evaluation, error) {
	var ev Evaluation
	var sum float64
	for i, sample := range samples {
		outputs, err := net.Classify(sample.Inputs)
		if err != nil {
			return Evaluation{}, fmt.Errorf("sample %d: %w", i, err)
		}
		marked := outputs[0] > threshold
		sum += outputs[0]
		if marked {
			ev.Marked++
		}
		if len(sample.Targets) > 0 && marked == (sample.Targets[0] > threshold) {
			ev.Correct++
		}
		ev.Total++
	}
	if ev.Total > 0 {
		ev.MeanOutput = sum / float64(ev.Total)
	}
	net.logf("%d%% of samples classified as marked\n", int(ev.MarkedFraction()*100))
	net.logf("Mean output: %g\n", ev.MeanOutput)
	return ev, nil
}

// Fit builds an engine from cfg and trains it online for cfg.Epochs passes.
func Fit(cfg utils.Config, samples Samples, c Config) (*MLP, error) {
	if err := utils.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	net := NewMLP(c)
	if err := net.Init(cfg.Architecture, cfg.LearningRate, cfg.Beta, rand.NewSource(cfg.Seed)); err != nil {
		return nil, err
	}

	stats := &utils.TimingStats{}
	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		mse, err := net.TrainSamples(samples, stats)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		net.logf("Epoch %d of %d complete, mse %.6f\n", epoch, cfg.Epochs, mse)
	}
	stats.TotalTime = time.Since(start)
	utils.PrintTimingStats(stats, cfg.Epochs)

	return net, nil
}
