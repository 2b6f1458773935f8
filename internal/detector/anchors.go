package detector

import "fmt"

// AnchorGrid holds the anchor centers of every configured stride.
//
// The grids are built once by NewAnchorGrid and never written again, so an
// AnchorGrid may be shared by any number of goroutines without locking.
type AnchorGrid struct {
	inputSize int
	anchors   int
	centers   map[int][]Center
}

// NewAnchorGrid builds the center grids for the given strides. inputSize must
// be divisible by every stride. Each grid location is repeated
// anchorsPerLocation times, consecutively.
func NewAnchorGrid(inputSize int, strides []int, anchorsPerLocation int) (*AnchorGrid, error) {
	if inputSize <= 0 {
		return nil, fmt.Errorf("%w: input size %d", ErrInvalidConfig, inputSize)
	}
	if anchorsPerLocation < 1 {
		return nil, fmt.Errorf("%w: %d anchors per location", ErrInvalidConfig, anchorsPerLocation)
	}

	g := &AnchorGrid{
		inputSize: inputSize,
		anchors:   anchorsPerLocation,
		centers:   make(map[int][]Center, len(strides)),
	}

	for _, stride := range strides {
		if stride <= 0 || inputSize%stride != 0 {
			return nil, fmt.Errorf("%w: input size %d is not divisible by stride %d", ErrInvalidConfig, inputSize, stride)
		}
		if _, dup := g.centers[stride]; dup {
			return nil, fmt.Errorf("%w: duplicate stride %d", ErrInvalidConfig, stride)
		}
		g.centers[stride] = buildCenters(inputSize/stride, stride, anchorsPerLocation)
	}

	return g, nil
}

// buildCenters emits the grid row by row with x varying fastest. This must
// match the order in which the network emits anchor rows.
func buildCenters(featureMapSize, stride, anchors int) []Center {
	centers := make([]Center, 0, featureMapSize*featureMapSize*anchors)
	for gy := 0; gy < featureMapSize; gy++ {
		for gx := 0; gx < featureMapSize; gx++ {
			c := Center{X: gx * stride, Y: gy * stride}
			for a := 0; a < anchors; a++ {
				centers = append(centers, c)
			}
		}
	}
	return centers
}

// Centers returns the first n centers of the stride's grid. The returned
// slice aliases the grid and must not be modified.
func (g *AnchorGrid) Centers(stride, n int) ([]Center, error) {
	centers, ok := g.centers[stride]
	if !ok {
		return nil, fmt.Errorf("%w: stride %d is not configured", ErrInvalidConfig, stride)
	}
	if n < 0 || n > len(centers) {
		return nil, fmt.Errorf("%w: stride %d has %d anchors, %d requested", ErrShapeMismatch, stride, len(centers), n)
	}
	return centers[:n:n], nil
}

// Len returns the number of anchors of a stride, or 0 if it is not configured.
func (g *AnchorGrid) Len(stride int) int {
	return len(g.centers[stride])
}

// InputSize returns the network input size the grid was built for.
func (g *AnchorGrid) InputSize() int {
	return g.inputSize
}
