package m

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const modelTag = "nn"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write serializes the model as positional text: the tag, the layer count, the
// learning rate, beta, every layer size, then one line per weight matrix holding
// its weights in row-major order.
func (net *MLP) Write(w io.Writer) error {
	if !net.initialized() {
		return ErrNotInitialized
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%d\n", modelTag, len(net.layerSizes))
	fmt.Fprintf(bw, "%s\n%s\n", formatFloat(net.learningRate), formatFloat(net.activator.Beta))
	for _, n := range net.layerSizes {
		fmt.Fprintf(bw, "%d\n", n)
	}
	for _, wm := range net.weights {
		raw := wm.d.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			for j := 0; j < raw.Cols; j++ {
				if i > 0 || j > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(formatFloat(raw.Data[i*raw.Stride+j]))
			}
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing model: %w", err)
	}
	return nil
}

type tokenReader struct {
	sc *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &tokenReader{sc: sc}
}

func (t *tokenReader) next(what string) (string, error) {
	if t.sc.Scan() {
		return t.sc.Text(), nil
	}
	err := t.sc.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return "", fmt.Errorf("%w: reading %s: %w", ErrMalformedModel, what, err)
}

func (t *tokenReader) readInt(what string) (int, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformedModel, what, err)
	}
	return n, nil
}

func (t *tokenReader) readFloat(what string) (float64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformedModel, what, err)
	}
	return v, nil
}

// Read restores a model written by Write. The engine state is replaced only when
// the whole model has been read; on any error the previous state is kept.
func (net *MLP) Read(r io.Reader) error {
	tr := newTokenReader(r)

	tag, err := tr.next("model tag")
	if err != nil {
		return err
	}
	if tag != modelTag {
		return fmt.Errorf("%w: tag %q", ErrNotModel, tag)
	}

	count, err := tr.readInt("layer count")
	if err != nil {
		return err
	}
	if count < minLayers {
		return fmt.Errorf("%d layers: %w", count, ErrTooFewLayers)
	}
	learningRate, err := tr.readFloat("learning rate")
	if err != nil {
		return err
	}
	beta, err := tr.readFloat("beta")
	if err != nil {
		return err
	}

	// sizes and weights grow as tokens arrive, never from the declared header
	var layerSizes []int
	for l := 0; l < count; l++ {
		n, err := tr.readInt(fmt.Sprintf("size of layer %d", l))
		if err != nil {
			return err
		}
		layerSizes = append(layerSizes, n)
	}
	if err := validateLayerSizes(layerSizes); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedModel, err)
	}
	total, err := weightCount(layerSizes)
	if err != nil {
		return err
	}

	var data []float64
	for len(data) < total {
		v, err := tr.readFloat("weight")
		if err != nil {
			return fmt.Errorf("weight %d of %d: %w", len(data), total, err)
		}
		data = append(data, v)
	}

	weights := make([]*WeightMatrix, count-1)
	for l, off := 0, 0; l < len(weights); l++ {
		rows, cols := layerSizes[l], layerSizes[l+1]
		weights[l] = &WeightMatrix{d: mat.NewDense(rows, cols, data[off:off+rows*cols:off+rows*cols])}
		off += rows * cols
	}

	net.install(layerSizes, weights, learningRate, beta)
	net.logf("read model with %d layers\n", count)
	return nil
}

// weightCount returns the number of weights between all adjacent layers.
func weightCount(layerSizes []int) (int, error) {
	total := 0
	for l := 0; l+1 < len(layerSizes); l++ {
		rows, cols := layerSizes[l], layerSizes[l+1]
		if rows > math.MaxInt/cols || total > math.MaxInt-rows*cols {
			return 0, fmt.Errorf("%w: layers %d and %d hold too many weights", ErrMalformedModel, l, l+1)
		}
		total += rows * cols
	}
	return total, nil
}

// SaveFile writes the model to path, replacing any existing file.
func (net *MLP) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := net.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the model stored at path. See Read.
func (net *MLP) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := net.Read(f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// LoadOrInit reads the model at path when the file exists and otherwise initializes
// a fresh topology. loaded reports which of the two happened.
func (net *MLP) LoadOrInit(path string, layerSizes []int, learningRate, beta float64, src rand.Source) (loaded bool, err error) {
	if _, err := os.Stat(path); err == nil {
		if err := net.LoadFile(path); err != nil {
			return false, err
		}
		return true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return false, net.Init(layerSizes, learningRate, beta, src)
}
