package detector

import (
	"cmp"
	"slices"
)

// Suppressor runs greedy non-maximum suppression using buffers that are
// reused across calls. A Suppressor must not be used concurrently.
type Suppressor struct {
	order      []int
	areas      []float32
	suppressed []bool
	keep       []int
}

// NewSuppressor returns an empty Suppressor.
func NewSuppressor() *Suppressor {
	return &Suppressor{}
}

// Suppress returns the indices of the boxes that survive suppression, ordered
// by descending score. Boxes with equal scores keep their input order. A box
// is dropped when its IoU with an already kept box is strictly greater than
// iouThreshold.
//
// boxes and scores must have the same length. The returned slice is owned by
// the Suppressor and is only valid until the next call.
func (s *Suppressor) Suppress(boxes []Box, scores []float32, iouThreshold float32) []int {
	n := len(boxes)
	s.keep = s.keep[:0]
	if n == 0 {
		return s.keep
	}

	s.order = grow(s.order, n)
	s.areas = grow(s.areas, n)
	s.suppressed = grow(s.suppressed, n)

	for i := 0; i < n; i++ {
		s.order[i] = i
		s.areas[i] = boxes[i].Area()
		s.suppressed[i] = false
	}

	slices.SortStableFunc(s.order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	for pos, i := range s.order {
		if s.suppressed[i] {
			continue
		}
		s.keep = append(s.keep, i)

		for _, j := range s.order[pos+1:] {
			if s.suppressed[j] {
				continue
			}
			if iou(boxes[i], boxes[j], s.areas[i], s.areas[j]) > iouThreshold {
				s.suppressed[j] = true
			}
		}
	}

	return s.keep
}

// NMS is a convenience wrapper that runs Suppress on a fresh Suppressor.
func NMS(boxes []Box, scores []float32, iouThreshold float32) []int {
	return NewSuppressor().Suppress(boxes, scores, iouThreshold)
}

// IoU returns the intersection over union of two boxes. Pairs whose union is
// not positive have an IoU of 0.
func IoU(a, b Box) float32 {
	return iou(a, b, a.Area(), b.Area())
}

func iou(a, b Box, areaA, areaB float32) float32 {
	w := max(0, min(a.X2, b.X2)-max(a.X1, b.X1))
	h := max(0, min(a.Y2, b.Y2)-max(a.Y1, b.Y1))
	inter := w * h

	union := areaA + areaB - inter
	if !(union > 0) {
		return 0
	}
	return inter / union
}

func grow[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}
