package detector

// Aggregate concatenates per-stride candidates in stride order. The order is
// significant only for breaking exact score ties during suppression.
func Aggregate(perStride [][]Candidate) []Candidate {
	total := 0
	for _, c := range perStride {
		total += len(c)
	}
	if total == 0 {
		return nil
	}

	all := make([]Candidate, 0, total)
	for _, c := range perStride {
		all = append(all, c...)
	}
	return all
}

// Boxes returns the boxes of candidates, index-aligned.
func Boxes(candidates []Candidate) []Box {
	boxes := make([]Box, len(candidates))
	for i := range candidates {
		boxes[i] = candidates[i].Box
	}
	return boxes
}

// Scores returns the scores of candidates, index-aligned.
func Scores(candidates []Candidate) []float32 {
	scores := make([]float32, len(candidates))
	for i := range candidates {
		scores[i] = candidates[i].Score
	}
	return scores
}
