package filmcolor

import (
	"strings"
	"sync"
)

// Canonical column names written to lookup tables and the result log.
const (
	ColThickness    = "Thickness [nm]"
	ColImage        = "Image"
	ColSubstrate    = "Substrate"
	ColAverageRGB   = "Average_RGB"
	ColAverageLAB   = "Average_LAB"
	ColThicknessRGB = "Thickness_RGB [nm]"
	ColThicknessLAB = "Thickness_LAB [nm]"
	ColNoteRGB      = "Note_RGB"
	ColNoteLAB      = "Note_LAB"
)

// LookupColumns is the fixed column set of every lookup table.
var LookupColumns = []string{"R", "G", "B", "L", "a", "b", ColThickness}

// ResultColumns is the fixed column set of the result log.
var ResultColumns = []string{
	ColImage, ColSubstrate, ColAverageRGB, ColAverageLAB,
	ColThicknessRGB, ColThicknessLAB, ColNoteRGB, ColNoteLAB,
}

// ColumnCandidates lists alternative header names accepted when reading
// files. Channel columns are matched case-sensitively ("B" and "b" differ);
// the candidates below are compared case-insensitively.
type ColumnCandidates struct {
	Thickness    []string `json:"thickness"`
	ThicknessRGB []string `json:"thicknessRgb"`
	ThicknessLAB []string `json:"thicknessLab"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Thickness:    []string{"Thickness", "thickness_nm", "Thickness (nm)"},
		ThicknessRGB: []string{"Thickness_RGB", "thickness_rgb_nm"},
		ThicknessLAB: []string{"Thickness_LAB", "thickness_lab_nm"},
	}
}

// DefaultColumnCandidates returns the built-in header aliases.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// SetColumnCandidates updates the header aliases used when reading files.
// Fields left nil fall back to the built-in defaults.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Thickness:    pickStrings(c.Thickness, defaults.Thickness),
		ThicknessRGB: pickStrings(c.ThicknessRGB, defaults.ThicknessRGB),
		ThicknessLAB: pickStrings(c.ThicknessLAB, defaults.ThicknessLAB),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Thickness:    cloneStrings(c.Thickness),
		ThicknessRGB: cloneStrings(c.ThicknessRGB),
		ThicknessLAB: cloneStrings(c.ThicknessLAB),
	}
}

func (c ColumnCandidates) aliases(canonical string) []string {
	switch canonical {
	case ColThickness:
		return c.Thickness
	case ColThicknessRGB:
		return c.ThicknessRGB
	case ColThicknessLAB:
		return c.ThicknessLAB
	}
	return nil
}

// resolveColumns maps each wanted column to its index in header. ok is false
// when any wanted column is missing.
func resolveColumns(header, want []string) (idx []int, ok bool) {
	candidates := getColumnCandidates()
	idx = make([]int, len(want))
	for i, name := range want {
		idx[i] = findColumn(header, name, candidates.aliases(name))
		if idx[i] < 0 {
			return nil, false
		}
	}
	return idx, true
}

func findColumn(header []string, canonical string, aliases []string) int {
	for i, col := range header {
		if cleanCell(col) == canonical {
			return i
		}
	}
	for i, col := range header {
		col = cleanCell(col)
		if strings.EqualFold(col, canonical) && len(canonical) > 1 {
			return i
		}
		for _, alias := range aliases {
			if strings.EqualFold(col, alias) {
				return i
			}
		}
	}
	return -1
}

// sameColumnSet reports whether header covers exactly the wanted columns.
func sameColumnSet(header, want []string) bool {
	if len(header) != len(want) {
		return false
	}
	_, ok := resolveColumns(header, want)
	return ok
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
