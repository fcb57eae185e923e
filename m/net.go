package m

import (
	"fmt"
	"io"
	"os"
	"time"

	"classifiers/parallel"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultLearningRate = 0.1
	DefaultBeta         = 1.0

	minLayers = 3
)

// Config holds the runtime settings of an engine. They are not part of the model
// and are not persisted.
type Config struct {
	Verbose  bool
	Output   io.Writer // trace destination, defaults to os.Stdout
	Parallel parallel.Config
}

// MLP is a fully connected feed-forward network trained online by back-propagation.
// An MLP must not be used from several goroutines at once; use Clone to give each
// caller its own copy.
type MLP struct {
	config       Config
	learningRate float64
	activator    Sigmoid
	layerSizes   []int
	weights      []*WeightMatrix
	layers       []*mat.VecDense // activations, one per layer
	errors       []*mat.VecDense // errors[l] belongs to layer l+1
}

// NewMLP returns an empty engine. Call Init or Read before using it.
func NewMLP(c Config) *MLP {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	return &MLP{
		config:       c,
		learningRate: DefaultLearningRate,
		activator:    Sigmoid{Beta: DefaultBeta},
	}
}

func (net *MLP) logf(format string, args ...interface{}) {
	if net.config.Verbose {
		fmt.Fprintf(net.config.Output, format, args...)
	}
}

func validateLayerSizes(layerSizes []int) error {
	if len(layerSizes) < minLayers {
		return fmt.Errorf("%d layers: %w", len(layerSizes), ErrTooFewLayers)
	}
	for l, n := range layerSizes {
		if n <= 0 {
			return fmt.Errorf("layer %d has size %d: %w", l, n, ErrInvalidShape)
		}
	}
	return nil
}

// Init replaces the whole engine state with a new topology. Every weight is drawn
// from a uniform distribution over [-1, 1) using src; a nil src is seeded from the
// clock. On error the engine is left as it was.
func (net *MLP) Init(layerSizes []int, learningRate, beta float64, src rand.Source) error {
	if err := validateLayerSizes(layerSizes); err != nil {
		return err
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	dist := distuv.Uniform{Min: -1, Max: 1, Src: src}
	weights := make([]*WeightMatrix, len(layerSizes)-1)
	for l := range weights {
		w, err := NewWeightMatrix(layerSizes[l], layerSizes[l+1])
		if err != nil {
			return err
		}
		raw := w.d.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			for j := range row {
				row[j] = dist.Rand()
			}
		}
		weights[l] = w
	}

	net.install(layerSizes, weights, learningRate, beta)
	net.logf("initialized %s MLP with layers %v\n", net.activator, layerSizes)
	return nil
}

// install swaps in a complete topology with fresh zeroed buffers.
func (net *MLP) install(layerSizes []int, weights []*WeightMatrix, learningRate, beta float64) {
	net.layerSizes = append([]int(nil), layerSizes...)
	net.weights = weights
	net.learningRate = learningRate
	net.activator = Sigmoid{Beta: beta}

	// the last entry is the output layer
	net.layers = make([]*mat.VecDense, len(layerSizes))
	for l, n := range layerSizes {
		net.layers[l] = mat.NewVecDense(n, nil)
	}
	net.errors = make([]*mat.VecDense, len(layerSizes)-1)
	for l := range net.errors {
		net.errors[l] = mat.NewVecDense(layerSizes[l+1], nil)
	}
}

func (net *MLP) initialized() bool {
	return len(net.layerSizes) >= minLayers
}

func (net *MLP) lastIndex() int {
	return len(net.layers) - 1
}

// NumLayers returns the number of layers, input and output included. It is 0
// before Init or Read.
func (net *MLP) NumLayers() int {
	return len(net.layerSizes)
}

// LayerSize returns the neuron count of layer l, or 0 and an *IndexError.
func (net *MLP) LayerSize(l int) (int, error) {
	if l < 0 || l >= len(net.layerSizes) {
		return 0, &IndexError{Op: "layer", Row: l, Rows: len(net.layerSizes)}
	}
	return net.layerSizes[l], nil
}

func (net *MLP) LearningRate() float64 {
	return net.learningRate
}

func (net *MLP) Beta() float64 {
	return net.activator.Beta
}

// Weights returns a copy of the matrix connecting layer l to layer l+1.
func (net *MLP) Weights(l int) (*WeightMatrix, error) {
	if l < 0 || l >= len(net.weights) {
		return nil, &IndexError{Op: "layer", Row: l, Rows: len(net.weights)}
	}
	return net.weights[l].Clone(), nil
}

// FeedForward propagates input through the network, overwriting every activation
// buffer. Layer 0 holds the raw input.
func (net *MLP) FeedForward(input []float64) error {
	if !net.initialized() {
		return ErrNotInitialized
	}
	if len(input) != net.layerSizes[0] {
		return fmt.Errorf("%w: %d != %d", ErrInputSize, len(input), net.layerSizes[0])
	}
	copy(net.layers[0].RawVector().Data, input)

	for l := 1; l < len(net.layers); l++ {
		w := net.weights[l-1].d
		prev := net.layers[l-1]
		current := net.layers[l].RawVector().Data
		parallel.For(len(current), func(k int) {
			current[k] = net.activator.Activate(mat.Dot(w.ColView(k), prev))
		}, net.config.Parallel)
	}
	return nil
}

// BackPropagation performs one gradient step towards target using the activations
// left by the preceding FeedForward call.
func (net *MLP) BackPropagation(target []float64) error {
	if !net.initialized() {
		return ErrNotInitialized
	}
	last := net.lastIndex()
	if len(target) != net.layerSizes[last] {
		return fmt.Errorf("%w: %d != %d", ErrTargetSize, len(target), net.layerSizes[last])
	}

	net.logf("compute error layer %d\n", last)
	outputs := net.layers[last].RawVector().Data
	outErrors := net.errors[last-1].RawVector().Data
	parallel.For(len(outputs), func(k int) {
		a := outputs[k]
		outErrors[k] = (target[k] - a) * net.activator.Deactivate(a)
	}, net.config.Parallel)

	// hidden errors use the weights as they were during the forward pass
	for l := last - 1; l > 0; l-- {
		net.logf("compute error layer %d -> %d\n", l, l+1)
		w := net.weights[l].d
		next := net.errors[l]
		activations := net.layers[l].RawVector().Data
		errs := net.errors[l-1].RawVector().Data
		parallel.For(len(activations), func(j int) {
			errs[j] = mat.Dot(w.RowView(j), next) * net.activator.Deactivate(activations[j])
		}, net.config.Parallel)
	}

	for l := last - 1; l >= 0; l-- {
		net.logf("updating weights %d\n", l+1)
		w := net.weights[l]
		activations := net.layers[l].RawVector().Data
		errs := net.errors[l].RawVector().Data
		parallel.For(len(activations), func(j int) {
			floats.AddScaled(w.row(j), net.learningRate*activations[j], errs)
		}, net.config.Parallel)
	}
	return nil
}

// Train runs FeedForward on input followed by BackPropagation towards target.
func (net *MLP) Train(input, target []float64) error {
	if err := net.FeedForward(input); err != nil {
		return err
	}
	return net.BackPropagation(target)
}

// Classify feeds input forward and returns a copy of the output layer.
func (net *MLP) Classify(input []float64) ([]float64, error) {
	if err := net.FeedForward(input); err != nil {
		return nil, err
	}
	return net.Output(), nil
}

// Output returns a copy of the output layer activations.
func (net *MLP) Output() []float64 {
	if !net.initialized() {
		return nil
	}
	return append([]float64(nil), net.layers[net.lastIndex()].RawVector().Data...)
}

// Predict returns the index of the strongest output neuron.
func (net *MLP) Predict(input []float64) (int, error) {
	outputs, err := net.Classify(input)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(outputs), nil
}

// Clone returns an independent copy of the engine, weights and buffers included.
func (net *MLP) Clone() *MLP {
	c := &MLP{
		config:       net.config,
		learningRate: net.learningRate,
		activator:    net.activator,
		layerSizes:   append([]int(nil), net.layerSizes...),
	}
	c.weights = make([]*WeightMatrix, len(net.weights))
	for l, w := range net.weights {
		c.weights[l] = w.Clone()
	}
	c.layers = make([]*mat.VecDense, len(net.layers))
	for l, v := range net.layers {
		c.layers[l] = mat.VecDenseCopyOf(v)
	}
	c.errors = make([]*mat.VecDense, len(net.errors))
	for l, v := range net.errors {
		c.errors[l] = mat.VecDenseCopyOf(v)
	}
	return c
}
