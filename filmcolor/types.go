package filmcolor

import (
	"encoding/json"
	"fmt"
)

// Triplet holds one color in either RGB or LAB space.
type Triplet [3]float64

// Space selects which color triplet of a lookup entry is compared.
type Space string

const (
	// SpaceRGB compares the normalized R, G, B channels.
	SpaceRGB Space = "RGB"
	// SpaceLAB compares the normalized L, a, b channels.
	SpaceLAB Space = "LAB"
)

// MatchKind classifies the outcome of a nearest-entry lookup.
type MatchKind string

const (
	MatchMultiple    MatchKind = "Multiple matches"
	MatchExact       MatchKind = "Exact match"
	MatchApproximate MatchKind = "Approximate match"
	MatchNone        MatchKind = "No match"
)

// Mode is the operation requested from the service.
type Mode string

const (
	// ModeEntry stores a new reference entry in the substrate table.
	ModeEntry Mode = "create entry"
	// ModeMap maps a sample onto the substrate table and logs the result.
	ModeMap Mode = "map to table"
)

// EntryMethod records how the caller obtained its RGB samples.
type EntryMethod string

const (
	EntryManual EntryMethod = "manual"
	EntryImage  EntryMethod = "image"
)

// ManualImageName is recorded in the result log for manually typed samples.
const ManualImageName = "Manual Entry"

// DefaultThreshold is the largest distance still reported as an approximate match.
const DefaultThreshold = 5.0

// LookupEntry is one reference measurement: normalized colors and the film thickness in nm.
type LookupEntry struct {
	RGB       Triplet `json:"rgb"`
	LAB       Triplet `json:"lab"`
	Thickness float64 `json:"thickness"`
}

// Color returns the entry's triplet for the given space.
func (e LookupEntry) Color(space Space) Triplet {
	if space == SpaceLAB {
		return e.LAB
	}
	return e.RGB
}

// Match is the result of FindClosest.
type Match struct {
	Thickness string
	Kind      MatchKind
	Distance  float64
	Indices   []int
}

// ResultRecord is one row of the result log.
type ResultRecord struct {
	Image        string
	Substrate    string
	AverageRGB   Triplet
	AverageLAB   Triplet
	ThicknessRGB string
	ThicknessLAB string
	NoteRGB      string
	NoteLAB      string
}

// Request carries everything the caller supplies for one operation.
type Request struct {
	Mode        Mode
	EntryMethod EntryMethod
	Substrate   string
	// Image is the source image path or name; ignored for manual entry.
	Image      string
	Background [3]int
	Foreground [3]int
	// Thickness in nm, only used in entry mode.
	Thickness float64
}

// Mapping is returned to the caller after a sample was mapped.
type Mapping struct {
	NormalizedRGB Triplet
	NormalizedLAB Triplet
	RGB           Match
	LAB           Match
	Record        ResultRecord
}

// Outcome is the result of Service.Process; exactly one field is set.
type Outcome struct {
	Entry   *LookupEntry
	Mapping *Mapping
}

// ZeroPolicy decides how a zero background channel is handled during normalization.
type ZeroPolicy string

const (
	// ZeroReject fails normalization with ErrNormalization.
	ZeroReject ZeroPolicy = "reject"
	// ZeroFloor divides by 1 instead of 0.
	ZeroFloor ZeroPolicy = "floor"
)

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	DataDir        string     `json:"dataDir"`
	ResultsFile    string     `json:"resultsFile"`
	TablePattern   string     `json:"tablePattern"`
	Substrates     []string   `json:"substrates"`
	Threshold      *float64   `json:"threshold,omitempty"`
	ZeroBackground ZeroPolicy `json:"zeroBackground"`

	Columns ColumnCandidates `json:"columns"`
}

// DefaultSubstrates lists the substrates known out of the box.
var DefaultSubstrates = []string{"Float", "Borofloat", "Si", "D263"}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.ResultsFile == "" {
		c.ResultsFile = "results.csv"
	}
	if c.TablePattern == "" {
		c.TablePattern = "lookup_table_%s.csv"
	}
	if len(c.Substrates) == 0 {
		c.Substrates = append([]string(nil), DefaultSubstrates...)
	}
	if c.Threshold == nil {
		threshold := DefaultThreshold
		c.Threshold = &threshold
	}
	if c.ZeroBackground == "" {
		c.ZeroBackground = ZeroReject
	}
	c.Columns = c.Columns.withDefaults()
}

// Validate reports settings that ApplyDefaults cannot repair.
func (c Config) Validate() error {
	switch c.ZeroBackground {
	case ZeroReject, ZeroFloor:
	default:
		return fmt.Errorf("unknown zeroBackground policy %q", c.ZeroBackground)
	}
	if c.Threshold != nil && !(*c.Threshold >= 0) {
		return fmt.Errorf("threshold must be a non-negative number, got %g", *c.Threshold)
	}
	return nil
}

// MatchThreshold returns the configured threshold, or DefaultThreshold when unset.
// A threshold of 0 reports only exact matches and ties.
func (c Config) MatchThreshold() float64 {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}
