package face

// Candidate is one face reported by the detector for a frame.
type Candidate struct {
	Landmarks   Landmarks
	Blendshapes Blendshapes
	Confidence  float64 // detector confidence, 0-1
}

// Area returns the normalized bounding-box area of the candidate's landmarks.
func (c Candidate) Area() float64 {
	minX, minY, maxX, maxY := c.Landmarks.Bounds()
	return (maxX - minX) * (maxY - minY)
}

// SelectPrimary picks the face to analyse when a detector reports several.
// Priority: confidence * 0.7 + relative area * 0.3. Returns nil for no faces.
func SelectPrimary(faces []Candidate) *Candidate {
	if len(faces) == 0 {
		return nil
	}
	if len(faces) == 1 {
		return &faces[0]
	}

	maxArea := 0.0
	for _, f := range faces {
		if a := f.Area(); a > maxArea {
			maxArea = a
		}
	}

	bestScore := -1.0
	var best *Candidate
	for i := range faces {
		area := 0.0
		if maxArea > 0 {
			area = faces[i].Area() / maxArea
		}
		score := faces[i].Confidence*0.7 + area*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}
	return best
}
