package face

import "math"

// Features are geometric ratios derived from one frame's landmarks.
type Features struct {
	EyeAspectRatioLeft  float64 `json:"eye_aspect_ratio_left"`
	EyeAspectRatioRight float64 `json:"eye_aspect_ratio_right"`
	MouthAspectRatio    float64 `json:"mouth_aspect_ratio"`
	MouthCornerAngle    float64 `json:"mouth_corner_angle"` // degrees, smaller = corners lifted
	LipCompression      float64 `json:"lip_compression"`
	BrowToEyeDistance   float64 `json:"brow_to_eye_distance"`
	BrowInnerDistance   float64 `json:"brow_inner_distance"`
	NoseWrinkle         float64 `json:"nose_wrinkle"`
	Symmetry            float64 `json:"symmetry"`  // 0-1, 1 = symmetric
	HeadTilt            float64 `json:"head_tilt"` // degrees, positive = right
	MouthWidth          float64 `json:"mouth_width"`
	JawOpenness         float64 `json:"jaw_openness"`
}

// EyeAspectRatio is the mean of both eyes.
func (f Features) EyeAspectRatio() float64 {
	return (f.EyeAspectRatioLeft + f.EyeAspectRatioRight) / 2
}

// Extract derives Features from a face mesh. It is pure and returns
// ErrMissingLandmarks when a required index is absent.
func Extract(l Landmarks) (Features, error) {
	if !l.HasFeatures() {
		return Features{}, ErrMissingLandmarks
	}

	var f Features

	f.EyeAspectRatioLeft = ratio(
		Distance(l[LeftEyeTop], l[LeftEyeBottom]),
		Distance(l[LeftEyeOuter], l[LeftEyeInner]),
	)
	f.EyeAspectRatioRight = ratio(
		Distance(l[RightEyeTop], l[RightEyeBottom]),
		Distance(l[RightEyeOuter], l[RightEyeInner]),
	)

	mouthHeight := Distance(l[MouthTop], l[MouthBottom])
	f.MouthWidth = Distance(l[MouthLeft], l[MouthRight])
	f.MouthAspectRatio = ratio(mouthHeight, f.MouthWidth)

	center := Point{
		X: (l[MouthTop].X + l[MouthBottom].X) / 2,
		Y: (l[MouthTop].Y + l[MouthBottom].Y) / 2,
	}
	f.MouthCornerAngle = Angle(l[MouthLeft], center, l[MouthRight])

	upperLip := Distance(l[UpperLipTop], l[MouthTop])
	lowerLip := Distance(l[MouthBottom], l[LowerLipBottom])
	f.LipCompression = ratio(upperLip+lowerLip, mouthHeight)

	f.BrowToEyeDistance = (Distance(l[LeftBrowInner], l[LeftEyeTop]) +
		Distance(l[RightBrowInner], l[RightEyeTop])) / 2
	f.BrowInnerDistance = Distance(l[LeftBrowInner], l[RightBrowInner])

	f.NoseWrinkle = ratio(
		Distance(l[NoseBridgeTop], l[NoseBridgeMid]),
		Distance(l[NoseTip], l[NoseBase]),
	)

	left := math.Abs(l[MouthLeft].Y - center.Y)
	right := math.Abs(l[MouthRight].Y - center.Y)
	if hi := math.Max(left, right); hi > 0 {
		f.Symmetry = math.Min(left, right) / hi
	} else {
		f.Symmetry = 1
	}

	f.HeadTilt = math.Atan2(
		l[RightCheek].Y-l[LeftCheek].Y,
		l[RightCheek].X-l[LeftCheek].X,
	) * 180 / math.Pi

	f.JawOpenness = ratio(mouthHeight, Distance(l[Forehead], l[Chin]))

	return f, nil
}
