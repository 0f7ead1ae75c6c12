package lighting

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FromJPEG decodes a JPEG (or any OpenCV-readable image) and returns its
// mean brightness.
func FromJPEG(data []byte) (Sample, error) {
	if len(data) == 0 {
		return Sample{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	if img.Empty() {
		return Sample{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	// Channel means in BGR order; their average equals mean((r+g+b)/3).
	m := img.Mean()
	return Sample{Luma: (m.Val1 + m.Val2 + m.Val3) / 3}, nil
}
