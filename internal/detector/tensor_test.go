package detector

import (
	"errors"
	"testing"

	"gorgonia.org/tensor"
)

func TestNewTensor(t *testing.T) {
	tt, err := NewTensor(2, 3, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row := tt.Row(1); row[0] != 4 || row[2] != 6 {
		t.Errorf("unexpected row %v", row)
	}

	if _, err := NewTensor(2, 3, []float32{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := NewTensor(-1, 3, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestGroupOutputs(t *testing.T) {
	mk := func(v float32) Tensor { return Tensor{Rows: 1, Cols: 1, Data: []float32{v}} }

	t.Run("triples", func(t *testing.T) {
		outs, err := GroupOutputs([]Tensor{mk(1), mk(2), mk(3), mk(4), mk(5), mk(6)}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(outs) != 2 {
			t.Fatalf("expected 2 outputs, got %d", len(outs))
		}
		if outs[1].Boxes.Data[0] != 4 || outs[1].Scores.Data[0] != 5 || outs[1].Landmarks.Data[0] != 6 {
			t.Errorf("unexpected grouping %+v", outs[1])
		}
	})

	t.Run("pairs", func(t *testing.T) {
		outs, err := GroupOutputs([]Tensor{mk(1), mk(2), mk(3), mk(4)}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outs[0].Landmarks != nil || outs[1].Scores.Data[0] != 4 {
			t.Errorf("unexpected grouping %+v", outs)
		}
	})

	t.Run("wrong count", func(t *testing.T) {
		_, err := GroupOutputs([]Tensor{mk(1), mk(2), mk(3), mk(4), mk(5)}, 2)
		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("no strides", func(t *testing.T) {
		_, err := GroupOutputs(nil, 0)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestTensorFromDense(t *testing.T) {
	t.Run("two dimensional", func(t *testing.T) {
		backing := []float32{1, 2, 3, 4, 5, 6, 7, 8}
		d := tensor.New(tensor.WithShape(2, 4), tensor.WithBacking(backing))

		got, err := TensorFromDense(d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Rows != 2 || got.Cols != 4 || got.Row(1)[3] != 8 {
			t.Errorf("unexpected tensor %+v", got)
		}

		backing[0] = 100
		if got.Data[0] != 1 {
			t.Error("expected data to be copied")
		}
	})

	t.Run("leading batch dimension", func(t *testing.T) {
		d := tensor.New(tensor.WithShape(1, 3, 2), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))

		got, err := TensorFromDense(d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Rows != 3 || got.Cols != 2 {
			t.Errorf("expected 3x2, got %dx%d", got.Rows, got.Cols)
		}
	})

	t.Run("rejects float64", func(t *testing.T) {
		d := tensor.New(tensor.WithShape(1, 4), tensor.WithBacking([]float64{1, 2, 3, 4}))

		if _, err := TensorFromDense(d); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("rejects batch of two", func(t *testing.T) {
		d := tensor.New(tensor.WithShape(2, 1, 2), tensor.WithBacking([]float32{1, 2, 3, 4}))

		if _, err := TensorFromDense(d); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if _, err := TensorFromDense(nil); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})
}
