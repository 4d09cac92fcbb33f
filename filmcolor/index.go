package filmcolor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// FindClosest returns the entries of table nearest to query in the given
// space by Euclidean distance. Entries at exactly the minimum distance are
// all reported, in insertion order, with their thicknesses joined by "/".
func FindClosest(query Triplet, table *LookupTable, space Space, threshold float64) (Match, error) {
	if table == nil {
		return Match{}, ErrEmptyTable
	}
	if !table.HasLookupColumns() {
		return Match{}, fmt.Errorf("%w: %s table has columns %v", ErrSchemaMismatch, table.Substrate, table.Columns)
	}
	if len(table.Entries) == 0 {
		return Match{}, fmt.Errorf("%w: %s", ErrEmptyTable, table.Substrate)
	}
	if space != SpaceRGB && space != SpaceLAB {
		return Match{}, fmt.Errorf("unknown color space %q", space)
	}

	distances := make([]float64, len(table.Entries))
	for i, e := range table.Entries {
		c := e.Color(space)
		distances[i] = floats.Distance(c[:], query[:], 2)
	}
	minDistance := floats.Min(distances)

	var closest []int
	for i, d := range distances {
		if d == minDistance {
			closest = append(closest, i)
		}
	}
	// NaN distances never compare equal to the minimum.
	if len(closest) == 0 {
		return Match{Kind: MatchNone, Distance: math.NaN()}, nil
	}

	thicknesses := make([]string, len(closest))
	for i, idx := range closest {
		thicknesses[i] = FormatThickness(table.Entries[idx].Thickness)
	}

	m := Match{
		Thickness: strings.Join(thicknesses, "/"),
		Distance:  minDistance,
		Indices:   closest,
	}
	switch {
	case len(closest) > 1:
		m.Kind = MatchMultiple
	case table.Entries[closest[0]].Color(space) == query:
		m.Kind = MatchExact
	case minDistance <= threshold:
		m.Kind = MatchApproximate
	default:
		m.Kind = MatchNone
	}
	return m, nil
}

// FormatThickness renders a thickness in its literal float form. Integral
// values keep a trailing ".0" so that 10 prints as "10.0".
func FormatThickness(v float64) string {
	return formatLiteral(v)
}

// formatLiteral prints the shortest round-trip form of v. Decimal exponents
// below -4 or from 16 upward use scientific notation, e.g. "1e+21" and "1e-05".
func formatLiteral(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}
	s := formatFloat(v)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
