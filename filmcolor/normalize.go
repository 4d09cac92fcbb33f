package filmcolor

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats/scalar"
)

// RatioPrecision is the number of decimal places kept for normalized channels.
const RatioPrecision = 5

// maxRatio bounds normalized channels from above.
const maxRatio = 255

// Normalize divides the foreground by the background channel-wise in both
// spaces. Ratios are clipped to [0,255] and rounded to RatioPrecision places.
func Normalize(fgRGB, fgLAB, bgRGB, bgLAB Triplet, policy ZeroPolicy) (Triplet, Triplet, error) {
	rgb, err := ratio(fgRGB, bgRGB, SpaceRGB, policy)
	if err != nil {
		return Triplet{}, Triplet{}, err
	}
	lab, err := ratio(fgLAB, bgLAB, SpaceLAB, policy)
	if err != nil {
		return Triplet{}, Triplet{}, err
	}
	return rgb, lab, nil
}

func ratio(fg, bg Triplet, space Space, policy ZeroPolicy) (Triplet, error) {
	var out Triplet
	for i := range fg {
		den := bg[i]
		if den == 0 {
			if policy != ZeroFloor {
				return Triplet{}, fmt.Errorf("%w: background %s channel %s is zero", ErrNormalization, space, channelName(space, i))
			}
			den = 1
		}
		out[i] = RoundRatio(fg[i] / den)
	}
	return out, nil
}

// RoundRatio clips v to the ratio range and rounds it half-to-even at
// RatioPrecision places. Stored and queried colors both pass through it.
func RoundRatio(v float64) float64 {
	return scalar.RoundEven(clamp(v, 0, maxRatio), RatioPrecision)
}

func roundTriplet(t Triplet) Triplet {
	return Triplet{RoundRatio(t[0]), RoundRatio(t[1]), RoundRatio(t[2])}
}

func channelName(space Space, i int) string {
	if space == SpaceLAB {
		return [...]string{"L", "a", "b"}[i]
	}
	return [...]string{"R", "G", "B"}[i]
}

// NormalizeName performs Unicode normalization and trims whitespace.
func NormalizeName(name string) string {
	normed := norm.NFKC.String(name)
	normed = strings.TrimSpace(normed)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
