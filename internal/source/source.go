// Package source yields decoder input frames from external producers: files
// of serialized network outputs and inference subprocesses.
package source

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"gorgonia.org/tensor"

	"github.com/ayusman/facedecode/internal/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source produces frames until it returns io.EOF.
type Source interface {
	// Next returns the next frame. Errors wrapping detector.ErrShapeMismatch
	// concern only that frame and the source may be read further.
	Next(ctx context.Context) (*detector.Frame, error)
	Close() error
}

// wireFrame is the serialized form of a frame. A frame carries either
// per-stride outputs or a flat tensor list in network output order.
type wireFrame struct {
	ScaleFactor float32                 `json:"scale_factor"`
	ImageWidth  int                     `json:"image_width"`
	ImageHeight int                     `json:"image_height"`
	Outputs     []detector.StrideOutput `json:"outputs,omitempty"`
	Tensors     []wireTensor            `json:"tensors,omitempty"`
}

// wireTensor is one raw network output. It is given either as rows and cols
// or, as dumped by an inference runtime, with its full shape such as
// [1, N, C].
type wireTensor struct {
	Rows  int       `json:"rows"`
	Cols  int       `json:"cols"`
	Shape []int     `json:"shape,omitempty"`
	Data  []float32 `json:"data"`
}

func (w wireTensor) tensor() (detector.Tensor, error) {
	if len(w.Shape) == 0 {
		return detector.NewTensor(w.Rows, w.Cols, w.Data)
	}

	size := 1
	for _, d := range w.Shape {
		if d <= 0 {
			return detector.Tensor{}, fmt.Errorf("%w: shape %v", detector.ErrShapeMismatch, w.Shape)
		}
		size *= d
	}
	if size != len(w.Data) {
		return detector.Tensor{}, fmt.Errorf("%w: shape %v has %d values", detector.ErrShapeMismatch, w.Shape, len(w.Data))
	}

	dense := tensor.New(tensor.WithShape(w.Shape...), tensor.WithBacking(w.Data))
	return detector.TensorFromDense(dense)
}

func (w *wireFrame) frame(numStrides int) (*detector.Frame, error) {
	f := &detector.Frame{
		ScaleFactor: w.ScaleFactor,
		Width:       w.ImageWidth,
		Height:      w.ImageHeight,
		Outputs:     w.Outputs,
	}

	if len(w.Tensors) == 0 {
		return f, nil
	}
	if len(w.Outputs) > 0 {
		return nil, fmt.Errorf("%w: frame has both outputs and tensors", detector.ErrShapeMismatch)
	}

	tensors := make([]detector.Tensor, len(w.Tensors))
	for i, wt := range w.Tensors {
		t, err := wt.tensor()
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		tensors[i] = t
	}

	outputs, err := detector.GroupOutputs(tensors, numStrides)
	if err != nil {
		return nil, err
	}
	f.Outputs = outputs
	return f, nil
}

// DecodeFrame parses one serialized frame. numStrides is used to group a flat
// tensor list.
func DecodeFrame(data []byte, numStrides int) (*detector.Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	return w.frame(numStrides)
}

// EncodeFrame serializes f in its per-stride form.
func EncodeFrame(f *detector.Frame) ([]byte, error) {
	return json.Marshal(wireFrame{
		ScaleFactor: f.ScaleFactor,
		ImageWidth:  f.Width,
		ImageHeight: f.Height,
		Outputs:     f.Outputs,
	})
}

// WriteFrame writes f as one line of newline-delimited JSON.
func WriteFrame(w io.Writer, f *detector.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
