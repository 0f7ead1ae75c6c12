package face

// Blendshapes maps detector category names (mouthSmileLeft, jawOpen, ...)
// to activation scores in [0,1].
type Blendshapes map[string]float64

// Get returns the named activation, or 0 when absent.
func (b Blendshapes) Get(name string) float64 {
	return b[name]
}

// Mean returns the average activation of the named categories.
func (b Blendshapes) Mean(names ...string) float64 {
	if len(names) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range names {
		sum += b[n]
	}
	return sum / float64(len(names))
}

// Max returns the largest activation among the named categories.
func (b Blendshapes) Max(names ...string) float64 {
	best := 0.0
	for _, n := range names {
		if v := b[n]; v > best {
			best = v
		}
	}
	return best
}

// Category is one named detector score, as delivered on the wire.
type Category struct {
	Name  string  `json:"categoryName"`
	Score float64 `json:"score"`
}

// FromCategories builds a Blendshapes map. It returns nil for an empty list
// so callers can treat "no blendshapes" uniformly.
func FromCategories(cats []Category) Blendshapes {
	if len(cats) == 0 {
		return nil
	}
	b := make(Blendshapes, len(cats))
	for _, c := range cats {
		b[c.Name] = c.Score
	}
	return b
}
