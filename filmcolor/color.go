package filmcolor

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats/scalar"
)

// ToLab converts an 8-bit RGB triplet to LAB using the sRGB transfer curve and
// the D65 white point. The result uses the 8-bit LAB encoding: L is scaled to
// [0,255] and a, b are offset by 128, each rounded to an integer.
func ToLab(rgb [3]int) (Triplet, error) {
	var ch [3]uint8
	for i, v := range rgb {
		c, err := safecast.Conv[uint8](v)
		if err != nil {
			return Triplet{}, fmt.Errorf("%w: %c=%d is outside [0,255]", ErrConversion, "RGB"[i], v)
		}
		ch[i] = c
	}
	col := colorful.Color{
		R: float64(ch[0]) / 255,
		G: float64(ch[1]) / 255,
		B: float64(ch[2]) / 255,
	}
	l, a, b := col.Lab()
	return Triplet{
		quantize8(l * 255),
		quantize8(a*100 + 128),
		quantize8(b*100 + 128),
	}, nil
}

// RGBTriplet widens integer channels to a Triplet after the same range check ToLab applies.
func RGBTriplet(rgb [3]int) (Triplet, error) {
	var out Triplet
	for i, v := range rgb {
		if _, err := safecast.Conv[uint8](v); err != nil {
			return Triplet{}, fmt.Errorf("%w: %c=%d is outside [0,255]", ErrConversion, "RGB"[i], v)
		}
		out[i] = float64(v)
	}
	return out, nil
}

func quantize8(v float64) float64 {
	return clamp(scalar.RoundEven(v, 0), 0, 255)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
