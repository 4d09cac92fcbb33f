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

// ResultLog is the ordered list of mapping results.
type ResultLog struct {
	Records []ResultRecord
}

// Append adds one record at the end of the log.
func (l *ResultLog) Append(rec ResultRecord) {
	l.Records = append(l.Records, rec)
}

// Len returns the number of records.
func (l *ResultLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Records)
}

// TableLoader returns the lookup table of a substrate, failing with
// ErrLookupTableNotFound when none exists.
type TableLoader func(substrate string) (*LookupTable, error)

// Remap recomputes the thickness and note fields of every record from its
// stored averages and its own substrate's table, then drops records that
// became identical, keeping the first. Any failure aborts the whole remap
// and leaves log untouched.
func Remap(log *ResultLog, loader TableLoader, threshold float64) (*ResultLog, error) {
	if log == nil {
		return &ResultLog{}, nil
	}
	tables := make(map[string]*LookupTable)
	updated := make([]ResultRecord, 0, log.Len())
	for i, rec := range log.Records {
		table, ok := tables[rec.Substrate]
		if !ok {
			var err error
			table, err = loader(rec.Substrate)
			if err != nil {
				return nil, fmt.Errorf("remap record %d: %w", i+1, err)
			}
			tables[rec.Substrate] = table
		}
		rgb, err := FindClosest(rec.AverageRGB, table, SpaceRGB, threshold)
		if err != nil {
			return nil, fmt.Errorf("remap record %d (%s, RGB): %w", i+1, rec.Substrate, err)
		}
		lab, err := FindClosest(rec.AverageLAB, table, SpaceLAB, threshold)
		if err != nil {
			return nil, fmt.Errorf("remap record %d (%s, LAB): %w", i+1, rec.Substrate, err)
		}
		rec.ThicknessRGB, rec.NoteRGB = rgb.Thickness, string(rgb.Kind)
		rec.ThicknessLAB, rec.NoteLAB = lab.Thickness, string(lab.Kind)
		updated = append(updated, rec)
	}
	return &ResultLog{Records: dedupeRecords(updated)}, nil
}

func dedupeRecords(records []ResultRecord) []ResultRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]ResultRecord, 0, len(records))
	for _, rec := range records {
		key := strings.Join(recordRow(rec), "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// FormatTuple renders a triplet as a parenthesized tuple, e.g. "(0.5, 0.25, 0.125)".
func FormatTuple(t Triplet) string {
	return "(" + formatLiteral(t[0]) + ", " + formatLiteral(t[1]) + ", " + formatLiteral(t[2]) + ")"
}

// ParseTuple parses the text written by FormatTuple. Elements wrapped as
// np.float64(x) are accepted as well; nan and inf elements are not.
func ParseTuple(s string) (Triplet, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return Triplet{}, fmt.Errorf("%w: %q is not a parenthesized tuple", ErrMalformedResultRecord, s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return Triplet{}, fmt.Errorf("%w: %q has %d elements, want 3", ErrMalformedResultRecord, s, len(parts))
	}
	var out Triplet
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if inner, ok := strings.CutPrefix(part, "np.float64("); ok {
			part = strings.TrimSuffix(inner, ")")
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return Triplet{}, fmt.Errorf("%w: %q element %d: %v", ErrMalformedResultRecord, s, i+1, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Triplet{}, fmt.Errorf("%w: %q element %d is not finite", ErrMalformedResultRecord, s, i+1)
		}
		out[i] = v
	}
	return out, nil
}

func recordRow(rec ResultRecord) []string {
	return []string{
		rec.Image,
		rec.Substrate,
		FormatTuple(rec.AverageRGB),
		FormatTuple(rec.AverageLAB),
		rec.ThicknessRGB,
		rec.ThicknessLAB,
		rec.NoteRGB,
		rec.NoteLAB,
	}
}

// ReadResults parses a result log in CSV form.
func ReadResults(r io.Reader) (*ResultLog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	log := &ResultLog{}
	if len(rows) == 0 {
		return log, nil
	}
	idx, ok := resolveColumns(rows[0], ResultColumns)
	if !ok {
		return nil, fmt.Errorf("%w: result header %v, want %v", ErrMalformedResultRecord, rows[0], ResultColumns)
	}
	for n, row := range rows[1:] {
		cells := make([]string, len(idx))
		for i, col := range idx {
			if col >= len(row) {
				return nil, fmt.Errorf("%w: row %d is missing column %s", ErrMalformedResultRecord, n+1, ResultColumns[i])
			}
			cells[i] = cleanCell(row[col])
		}
		rgb, err := ParseTuple(cells[2])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", n+1, ColAverageRGB, err)
		}
		lab, err := ParseTuple(cells[3])
		if err != nil {
			return nil, fmt.Errorf("row %d %s: %w", n+1, ColAverageLAB, err)
		}
		log.Append(ResultRecord{
			Image:        cells[0],
			Substrate:    cells[1],
			AverageRGB:   rgb,
			AverageLAB:   lab,
			ThicknessRGB: cells[4],
			ThicknessLAB: cells[5],
			NoteRGB:      cells[6],
			NoteLAB:      cells[7],
		})
	}
	return log, nil
}

// WriteResults writes the full log, header first.
func WriteResults(w io.Writer, log *ResultLog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ResultColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range log.Records {
		if err := writer.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

// LoadResults reads the result log at path. A missing file is ErrNoResults.
func LoadResults(path string) (*ResultLog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoResults, filepath.Base(path))
		}
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadResults(f)
}

// SaveResults replaces the file at path with the full log.
func SaveResults(path string, log *ResultLog) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteResults(w, log)
	})
}

// AppendResultFile appends one record to the log file at path, writing the
// header first when the file is new or empty.
func AppendResultFile(path string, rec ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(ResultColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := writer.Write(recordRow(rec)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}
