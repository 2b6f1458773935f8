package detector

import "fmt"

// StrideDecoder turns one stride's raw outputs into candidates.
type StrideDecoder struct {
	grid *AnchorGrid
}

// NewStrideDecoder returns a decoder that reads anchor centers from grid.
func NewStrideDecoder(grid *AnchorGrid) *StrideDecoder {
	return &StrideDecoder{grid: grid}
}

// Decode filters rows by confidence and decodes the survivors into
// original-image candidates. Boxes, scores and landmarks are filtered together
// by row index. A stride with no surviving rows yields an empty result.
//
// The k-th surviving row is decoded against the k-th grid center.
//
// Distances are (left, top, right, bottom) from the anchor center; landmark
// offsets alternate x and y. Both are scaled by scale after decoding.
func (d *StrideDecoder) Decode(out StrideOutput, stride int, scale, confThreshold float32, withLandmarks bool) ([]Candidate, error) {
	scoreCol, err := checkStride(out, stride)
	if err != nil {
		return nil, err
	}

	n := out.Boxes.Rows
	centers, err := d.grid.Centers(stride, n)
	if err != nil {
		return nil, err
	}

	var survivors []int
	for i := 0; i < n; i++ {
		score := out.Scores.Data[i*out.Scores.Cols+scoreCol]
		if score >= confThreshold {
			survivors = append(survivors, i)
		}
	}
	if len(survivors) == 0 {
		return nil, nil
	}

	decodeLandmarks := withLandmarks && out.Landmarks != nil

	candidates := make([]Candidate, 0, len(survivors))
	for k, i := range survivors {
		cx := float32(centers[k].X)
		cy := float32(centers[k].Y)
		dist := out.Boxes.Row(i)

		c := Candidate{
			Box: Box{
				X1: (cx - dist[0]) * scale,
				Y1: (cy - dist[1]) * scale,
				X2: (cx + dist[2]) * scale,
				Y2: (cy + dist[3]) * scale,
			},
			Score: out.Scores.Data[i*out.Scores.Cols+scoreCol],
		}

		if decodeLandmarks {
			offsets := out.Landmarks.Row(i)
			for j := 0; j < NumLandmarks; j++ {
				c.Landmarks[j] = Point{
					X: (cx + offsets[2*j]) * scale,
					Y: (cy + offsets[2*j+1]) * scale,
				}
			}
			c.HasLandmarks = true
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

// checkStride validates tensor shapes and returns the face score column.
func checkStride(out StrideOutput, stride int) (int, error) {
	if err := out.Boxes.check(); err != nil {
		return 0, fmt.Errorf("stride %d boxes: %w", stride, err)
	}
	if err := out.Scores.check(); err != nil {
		return 0, fmt.Errorf("stride %d scores: %w", stride, err)
	}
	if out.Boxes.Cols != 4 {
		return 0, fmt.Errorf("%w: stride %d boxes have %d columns, want 4", ErrShapeMismatch, stride, out.Boxes.Cols)
	}

	var scoreCol int
	switch out.Scores.Cols {
	case 1:
		scoreCol = 0
	case 2:
		scoreCol = 1
	default:
		return 0, fmt.Errorf("%w: stride %d scores have %d columns, want 1 or 2", ErrShapeMismatch, stride, out.Scores.Cols)
	}

	if out.Scores.Rows != out.Boxes.Rows {
		return 0, fmt.Errorf("%w: stride %d has %d box rows and %d score rows", ErrShapeMismatch, stride, out.Boxes.Rows, out.Scores.Rows)
	}

	if lm := out.Landmarks; lm != nil {
		if err := lm.check(); err != nil {
			return 0, fmt.Errorf("stride %d landmarks: %w", stride, err)
		}
		if lm.Cols != 2*NumLandmarks {
			return 0, fmt.Errorf("%w: stride %d landmarks have %d columns, want %d", ErrShapeMismatch, stride, lm.Cols, 2*NumLandmarks)
		}
		if lm.Rows != out.Boxes.Rows {
			return 0, fmt.Errorf("%w: stride %d has %d box rows and %d landmark rows", ErrShapeMismatch, stride, out.Boxes.Rows, lm.Rows)
		}
	}

	return scoreCol, nil
}
