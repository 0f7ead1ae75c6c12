// Package lighting estimates frame brightness for visibility scoring.
package lighting

import "fmt"

// Sample is the mean brightness of a frame, 0 (black) to 255 (white).
type Sample struct {
	Luma float64 `json:"luma"`
}

// FromRGBA averages (r+g+b)/3 over a packed RGBA buffer. Alpha is ignored.
func FromRGBA(pix []byte) (Sample, error) {
	if len(pix) == 0 || len(pix)%4 != 0 {
		return Sample{}, fmt.Errorf("%w: RGBA buffer length %d", ErrDecode, len(pix))
	}

	var total float64
	for i := 0; i < len(pix); i += 4 {
		total += (float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])) / 3
	}
	return Sample{Luma: total / float64(len(pix)/4)}, nil
}

// Level classifies the sample against dark, dim and bright cutoffs.
func (s Sample) Level(dark, dim, bright float64) string {
	switch {
	case s.Luma < dark:
		return "dark"
	case s.Luma < dim:
		return "dim"
	case s.Luma > bright:
		return "bright"
	default:
		return "ok"
	}
}
