// Package facetest builds synthetic face meshes for tests.
package facetest

import "github.com/teslashibe/go-mirrormind/pkg/face"

// MeshSize matches the detector's 478-point mesh (468 face + 10 iris).
const MeshSize = 478

// Neutral returns a frontal, centred face spanning 60% of the frame width
// with a relaxed mouth, level head and flat depth.
func Neutral() face.Landmarks {
	l := make(face.Landmarks, MeshSize)
	for i := range l {
		l[i] = face.Point{X: 0.5, Y: 0.5}
	}

	set := func(i int, x, y float64) { l[i] = face.Point{X: x, Y: y} }

	set(face.LeftCheek, 0.2, 0.5)
	set(face.RightCheek, 0.8, 0.5)
	set(face.Forehead, 0.5, 0.2)
	set(face.Chin, 0.5, 0.8)

	set(face.NoseBridgeTop, 0.5, 0.38)
	set(face.NoseBridgeMid, 0.5, 0.42)
	set(face.NoseTip, 0.5, 0.55)
	set(face.NoseBase, 0.5, 0.58)

	set(face.LeftEyeOuter, 0.30, 0.40)
	set(face.LeftEyeInner, 0.42, 0.40)
	set(face.LeftEyeTop, 0.36, 0.385)
	set(face.LeftEyeBottom, 0.36, 0.415)
	set(face.RightEyeOuter, 0.70, 0.40)
	set(face.RightEyeInner, 0.58, 0.40)
	set(face.RightEyeTop, 0.64, 0.385)
	set(face.RightEyeBottom, 0.64, 0.415)

	set(face.LeftBrowInner, 0.36, 0.35)
	set(face.RightBrowInner, 0.64, 0.35)

	set(face.MouthLeft, 0.42, 0.68)
	set(face.MouthRight, 0.58, 0.68)
	set(face.MouthTop, 0.5, 0.675)
	set(face.MouthBottom, 0.5, 0.685)
	set(face.UpperLipTop, 0.5, 0.66)
	set(face.LowerLipBottom, 0.5, 0.70)

	return l
}

// Smiling returns Neutral with both mouth corners lifted.
func Smiling() face.Landmarks {
	l := Neutral()
	l[face.MouthLeft].Y = 0.66
	l[face.MouthRight].Y = 0.66
	return l
}

// Translate shifts every point.
func Translate(l face.Landmarks, dx, dy float64) face.Landmarks {
	out := make(face.Landmarks, len(l))
	for i, p := range l {
		out[i] = face.Point{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
	}
	return out
}

// Scale shrinks or grows the face about its centre (0.5, 0.5).
func Scale(l face.Landmarks, factor float64) face.Landmarks {
	out := make(face.Landmarks, len(l))
	for i, p := range l {
		out[i] = face.Point{
			X: 0.5 + (p.X-0.5)*factor,
			Y: 0.5 + (p.Y-0.5)*factor,
			Z: p.Z,
		}
	}
	return out
}

// TurnHead moves the nose tip sideways by dx, as a yawed head would.
func TurnHead(l face.Landmarks, dx float64) face.Landmarks {
	out := append(face.Landmarks(nil), l...)
	out[face.NoseTip].X += dx
	return out
}

// Bumpy alternates depth across the first 50 points with the given amplitude.
func Bumpy(l face.Landmarks, amplitude float64) face.Landmarks {
	out := append(face.Landmarks(nil), l...)
	for i := 0; i < 50 && i < len(out); i++ {
		if i%2 == 0 {
			out[i].Z = amplitude
		} else {
			out[i].Z = -amplitude
		}
	}
	return out
}

// Blendshapes builds a score map from name/value pairs.
func Blendshapes(pairs ...any) face.Blendshapes {
	b := make(face.Blendshapes, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		b[pairs[i].(string)] = pairs[i+1].(float64)
	}
	return b
}
