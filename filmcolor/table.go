package filmcolor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LookupTable is the ordered reference table of one substrate.
type LookupTable struct {
	Substrate string
	// Columns is the header the table was read with.
	Columns []string
	Entries []LookupEntry
}

// NewLookupTable returns an empty table with the lookup columns.
func NewLookupTable(substrate string) *LookupTable {
	return &LookupTable{
		Substrate: substrate,
		Columns:   cloneStrings(LookupColumns),
	}
}

// HasLookupColumns reports whether the table's header is the lookup column set.
func (t *LookupTable) HasLookupColumns() bool {
	return sameColumnSet(t.Columns, LookupColumns)
}

// Append adds entry at the end of the table. The table is left unchanged
// when its columns do not match the lookup column set.
func (t *LookupTable) Append(entry LookupEntry) error {
	if !t.HasLookupColumns() {
		return fmt.Errorf("%w: %s table has columns %v, want %v", ErrSchemaMismatch, t.Substrate, t.Columns, LookupColumns)
	}
	entry.RGB = roundTriplet(entry.RGB)
	entry.LAB = roundTriplet(entry.LAB)
	t.Entries = append(t.Entries, entry)
	return nil
}

// Clone returns a deep copy of the table.
func (t *LookupTable) Clone() *LookupTable {
	out := &LookupTable{
		Substrate: t.Substrate,
		Columns:   cloneStrings(t.Columns),
	}
	if t.Entries != nil {
		out.Entries = make([]LookupEntry, len(t.Entries))
		copy(out.Entries, t.Entries)
	}
	return out
}

// ReadTable parses a lookup table in CSV form. An empty input yields an
// empty table. A header that is not the lookup column set is kept as
// Columns without any entries.
func ReadTable(r io.Reader, substrate string) (*LookupTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s table: %w", substrate, err)
	}
	if len(rows) == 0 {
		return NewLookupTable(substrate), nil
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	table := &LookupTable{Substrate: substrate, Columns: header}
	if !sameColumnSet(header, LookupColumns) {
		return table, nil
	}
	idx, _ := resolveColumns(header, LookupColumns)
	table.Entries = make([]LookupEntry, 0, len(rows)-1)
	for n, row := range rows[1:] {
		var vals [7]float64
		for i, col := range idx {
			if col >= len(row) {
				return nil, fmt.Errorf("%s table row %d: missing column %s", substrate, n+1, LookupColumns[i])
			}
			v, err := strconv.ParseFloat(cleanCell(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s table row %d column %s: %w", substrate, n+1, LookupColumns[i], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%s table row %d column %s: value %q is not finite", substrate, n+1, LookupColumns[i], row[col])
			}
			vals[i] = v
		}
		table.Entries = append(table.Entries, LookupEntry{
			RGB:       roundTriplet(Triplet{vals[0], vals[1], vals[2]}),
			LAB:       roundTriplet(Triplet{vals[3], vals[4], vals[5]}),
			Thickness: vals[6],
		})
	}
	return table, nil
}

// WriteTable writes the full table, header first.
func WriteTable(w io.Writer, t *LookupTable) error {
	if !t.HasLookupColumns() {
		return fmt.Errorf("%w: refusing to write %s table with columns %v", ErrSchemaMismatch, t.Substrate, t.Columns)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(LookupColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range t.Entries {
		row := []string{
			formatFloat(e.RGB[0]), formatFloat(e.RGB[1]), formatFloat(e.RGB[2]),
			formatFloat(e.LAB[0]), formatFloat(e.LAB[1]), formatFloat(e.LAB[2]),
			FormatThickness(e.Thickness),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

// Store persists one lookup table file per substrate.
type Store struct {
	Dir     string
	Pattern string
}

// NewStore returns a store rooted at dir. Pattern takes the substrate via %s.
func NewStore(dir, pattern string) *Store {
	if pattern == "" {
		pattern = "lookup_table_%s.csv"
	}
	return &Store{Dir: dir, Pattern: pattern}
}

// TablePath returns the file backing the substrate's table.
func (s *Store) TablePath(substrate string) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Pattern, substrate))
}

// LoadTable reads the substrate's table. A missing file yields an empty table.
func (s *Store) LoadTable(substrate string) (*LookupTable, error) {
	t, err := s.ExistingTable(substrate)
	if errors.Is(err, ErrLookupTableNotFound) {
		return NewLookupTable(substrate), nil
	}
	return t, err
}

// ExistingTable reads the substrate's table and fails with
// ErrLookupTableNotFound when no file exists.
func (s *Store) ExistingTable(substrate string) (*LookupTable, error) {
	if err := checkSubstrateName(substrate); err != nil {
		return nil, err
	}
	path := s.TablePath(substrate)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: substrate %q (%s)", ErrLookupTableNotFound, substrate, filepath.Base(path))
		}
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadTable(f, substrate)
}

// SaveTable replaces the substrate's file with the full table.
func (s *Store) SaveTable(t *LookupTable) error {
	if err := checkSubstrateName(t.Substrate); err != nil {
		return err
	}
	path := s.TablePath(t.Substrate)
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteTable(w, t)
	})
}

// checkSubstrateName keeps table files inside the store directory.
func checkSubstrateName(substrate string) error {
	if substrate == "" || substrate == "." || substrate == ".." || strings.ContainsAny(substrate, `/\`) {
		return fmt.Errorf("%w: %q is not a valid table name", ErrUnknownSubstrate, substrate)
	}
	return nil
}

// writeFileAtomic writes through a temp file that is renamed over path.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(tmp), err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
