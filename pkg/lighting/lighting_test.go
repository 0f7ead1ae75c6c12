package lighting

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
)

func solidRGBA(w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img.Pix
}

func TestFromRGBA(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want float64
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"mixed", color.RGBA{30, 60, 90, 0}, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromRGBA(solidRGBA(4, 3, tt.c))
			if err != nil {
				t.Fatalf("FromRGBA: %v", err)
			}
			if math.Abs(s.Luma-tt.want) > 1e-9 {
				t.Errorf("Luma = %v, want %v", s.Luma, tt.want)
			}
		})
	}
}

func TestFromRGBA_Invalid(t *testing.T) {
	for _, pix := range [][]byte{nil, {1, 2, 3}} {
		if _, err := FromRGBA(pix); !errors.Is(err, ErrDecode) {
			t.Errorf("FromRGBA(%v) err = %v, want ErrDecode", pix, err)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		luma float64
		want string
	}{
		{10, "dark"},
		{60, "dim"},
		{128, "ok"},
		{240, "bright"},
	}
	for _, tt := range tests {
		if got := (Sample{Luma: tt.luma}).Level(50, 80, 220); got != tt.want {
			t.Errorf("Level(%v) = %q, want %q", tt.luma, got, tt.want)
		}
	}
}

func TestFromJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	s, err := FromJPEG(buf.Bytes())
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if math.Abs(s.Luma-200) > 3 {
		t.Errorf("Luma = %v, want ~200", s.Luma)
	}
}

func TestFromJPEG_Invalid(t *testing.T) {
	if _, err := FromJPEG(nil); !errors.Is(err, ErrDecode) {
		t.Errorf("empty input err = %v", err)
	}
	if _, err := FromJPEG([]byte("not a jpeg")); !errors.Is(err, ErrDecode) {
		t.Errorf("garbage input err = %v", err)
	}
}
