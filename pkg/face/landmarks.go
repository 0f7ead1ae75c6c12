// Package face holds face-mesh landmark geometry: named indices, the
// derived feature ratios used by the geometric scorer, and primary-face selection.
package face

import "math"

// Point is a normalized landmark position. X and Y are in [0,1] image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is an ordered face mesh, indexed by anatomical position.
type Landmarks []Point

// Face-mesh indices used by feature extraction and quality checks.
const (
	LeftEyeTop    = 159
	LeftEyeBottom = 145
	LeftEyeOuter  = 33
	LeftEyeInner  = 133

	RightEyeTop    = 386
	RightEyeBottom = 374
	RightEyeOuter  = 263
	RightEyeInner  = 362

	LeftBrowInner  = 107
	RightBrowInner = 336

	MouthLeft      = 61
	MouthRight     = 291
	MouthTop       = 13 // upper lip, inner edge
	MouthBottom    = 14 // lower lip, inner edge
	UpperLipTop    = 0
	LowerLipBottom = 17

	NoseBridgeTop = 168
	NoseBridgeMid = 6
	NoseTip       = 1
	NoseBase      = 4

	Chin       = 152
	Forehead   = 10
	LeftCheek  = 234
	RightCheek = 454
)

// featureIndices are the points Extract reads.
var featureIndices = []int{
	LeftEyeTop, LeftEyeBottom, LeftEyeOuter, LeftEyeInner,
	RightEyeTop, RightEyeBottom, RightEyeOuter, RightEyeInner,
	LeftBrowInner, RightBrowInner,
	MouthLeft, MouthRight, MouthTop, MouthBottom, UpperLipTop, LowerLipBottom,
	NoseBridgeTop, NoseBridgeMid, NoseTip, NoseBase,
	Chin, Forehead, LeftCheek, RightCheek,
}

// outlineIndices are the points quality assessment reads.
var outlineIndices = []int{LeftCheek, RightCheek, Chin, Forehead, NoseTip}

// Has reports whether every index is present.
func (l Landmarks) Has(indices ...int) bool {
	for _, i := range indices {
		if i < 0 || i >= len(l) {
			return false
		}
	}
	return true
}

// HasFeatures reports whether Extract can run on l.
func (l Landmarks) HasFeatures() bool {
	return l.Has(featureIndices...)
}

// HasOutline reports whether the face outline points used for framing checks exist.
func (l Landmarks) HasOutline() bool {
	return l.Has(outlineIndices...)
}

// Bounds returns the bounding box of all points.
func (l Landmarks) Bounds() (minX, minY, maxX, maxY float64) {
	if len(l) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range l {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Distance is the 2-D Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Angle returns the angle at center between a and b, in degrees,
// using the law of cosines. Degenerate triangles yield 0.
func Angle(a, center, b Point) float64 {
	ca := Distance(center, a)
	cb := Distance(center, b)
	ab := Distance(a, b)
	if ca == 0 || cb == 0 {
		return 0
	}
	cos := (ca*ca + cb*cb - ab*ab) / (2 * ca * cb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
