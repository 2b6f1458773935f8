package detector

// Assemble converts the kept candidates into detections, in keep order.
//
// Box corners are clamped to [0, width] x [0, height] and truncated toward
// zero. Detections whose clipped width or height is below minFaceSize are
// dropped. Landmarks are clamped into the image, never used to discard.
func Assemble(candidates []Candidate, keep []int, width, height, minFaceSize int, withLandmarks bool) []Detection {
	detections := make([]Detection, 0, len(keep))

	for _, idx := range keep {
		c := &candidates[idx]

		bbox := Rect{
			X1: clampPixel(c.Box.X1, width),
			Y1: clampPixel(c.Box.Y1, height),
			X2: clampPixel(c.Box.X2, width),
			Y2: clampPixel(c.Box.Y2, height),
		}

		if bbox.Width() < minFaceSize || bbox.Height() < minFaceSize {
			continue
		}

		det := Detection{
			BBox:       bbox,
			Confidence: c.Score,
		}

		if withLandmarks && c.HasLandmarks {
			var lm FaceLandmarks
			for k, p := range c.Landmarks {
				lm[k] = PixelPoint{
					X: clampPixel(p.X, width),
					Y: clampPixel(p.Y, height),
				}
			}
			det.Landmarks = &lm
		}

		detections = append(detections, det)
	}

	return detections
}
