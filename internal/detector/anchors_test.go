package detector

import (
	"errors"
	"testing"
)

func TestNewAnchorGrid(t *testing.T) {
	t.Run("row major order with x fastest", func(t *testing.T) {
		g, err := NewAnchorGrid(16, []int{8}, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := g.Centers(8, g.Len(8))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Center{{0, 0}, {8, 0}, {0, 8}, {8, 8}}
		if len(got) != len(want) {
			t.Fatalf("expected %d centers, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("center %d: expected %v, got %v", i, want[i], got[i])
			}
		}
	})

	t.Run("anchors per location repeat consecutively", func(t *testing.T) {
		g, err := NewAnchorGrid(16, []int{8}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _ := g.Centers(8, 4)
		want := []Center{{0, 0}, {0, 0}, {8, 0}, {8, 0}}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("center %d: expected %v, got %v", i, want[i], got[i])
			}
		}
		if g.Len(8) != 8 {
			t.Errorf("expected 8 anchors, got %d", g.Len(8))
		}
	})

	t.Run("default strides on 640 input", func(t *testing.T) {
		g, err := NewAnchorGrid(640, []int{8, 16, 32}, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tests := map[int]int{8: 80 * 80 * 2, 16: 40 * 40 * 2, 32: 20 * 20 * 2}
		for stride, want := range tests {
			if got := g.Len(stride); got != want {
				t.Errorf("stride %d: expected %d anchors, got %d", stride, want, got)
			}
		}
		if g.InputSize() != 640 {
			t.Errorf("expected input size 640, got %d", g.InputSize())
		}

		last, _ := g.Centers(32, g.Len(32))
		if c := last[len(last)-1]; c != (Center{X: 608, Y: 608}) {
			t.Errorf("expected last center (608,608), got %v", c)
		}
	})

	t.Run("invalid configurations", func(t *testing.T) {
		tests := []struct {
			name      string
			inputSize int
			strides   []int
			anchors   int
		}{
			{"zero input", 0, []int{8}, 1},
			{"not divisible", 100, []int{8}, 1},
			{"zero stride", 64, []int{0}, 1},
			{"duplicate stride", 64, []int{8, 8}, 1},
			{"zero anchors", 64, []int{8}, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewAnchorGrid(tt.inputSize, tt.strides, tt.anchors)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}

func TestAnchorGrid_Centers(t *testing.T) {
	g, err := NewAnchorGrid(16, []int{8}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("prefix", func(t *testing.T) {
		got, err := g.Centers(8, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[1] != (Center{X: 8, Y: 0}) {
			t.Errorf("unexpected prefix %v", got)
		}
	})

	t.Run("unknown stride", func(t *testing.T) {
		_, err := g.Centers(16, 1)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("more rows than anchors", func(t *testing.T) {
		_, err := g.Centers(8, 5)
		if !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("repeated lookups are identical", func(t *testing.T) {
		a, _ := g.Centers(8, 4)
		b, _ := g.Centers(8, 4)
		if &a[0] != &b[0] {
			t.Error("expected lookups to share the cached grid")
		}
	})
}
