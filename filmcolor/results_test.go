package filmcolor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFormatTuple(t *testing.T) {
	tests := []struct {
		in   Triplet
		want string
	}{
		{Triplet{0.5, 0.25, 0.125}, "(0.5, 0.25, 0.125)"},
		{Triplet{1, 1, 1}, "(1.0, 1.0, 1.0)"},
		{Triplet{0.33333, 255, 0}, "(0.33333, 255.0, 0.0)"},
	}
	for _, tt := range tests {
		got := FormatTuple(tt.in)
		if got != tt.want {
			t.Errorf("FormatTuple(%v) = %q, want %q", tt.in, got, tt.want)
		}
		back, err := ParseTuple(got)
		if err != nil {
			t.Errorf("ParseTuple(%q): %v", got, err)
		} else if back != tt.in {
			t.Errorf("ParseTuple(%q) = %v, want %v", got, back, tt.in)
		}
	}
}

func TestParseTuple(t *testing.T) {
	good := map[string]Triplet{
		"(0.5, 0.25, 0.125)": {0.5, 0.25, 0.125},
		" (1,2,3) ":          {1, 2, 3},
		"(np.float64(0.5), np.float64(1.0), np.float64(2.25))": {0.5, 1, 2.25},
	}
	for in, want := range good {
		got, err := ParseTuple(in)
		if err != nil {
			t.Errorf("ParseTuple(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTuple(%q) = %v, want %v", in, got, want)
		}
	}

	bad := []string{"", "()", "0.5, 0.25, 0.125", "(0.5, 0.25)", "(0.5, 0.25, 0.125, 1)", "(a, b, c)", "[1, 2, 3]", "(nan, 0.5, 0.5)", "(0.5, inf, 0.5)", "(np.float64(nan), 1, 1)"}
	for _, in := range bad {
		if _, err := ParseTuple(in); !errors.Is(err, ErrMalformedResultRecord) {
			t.Errorf("ParseTuple(%q) error = %v, want ErrMalformedResultRecord", in, err)
		}
	}
}

func remapFixture(t *testing.T) (*ResultLog, TableLoader) {
	t.Helper()
	tables := map[string]*LookupTable{
		"Float": buildTable(t,
			LookupEntry{RGB: Triplet{0.5, 0.25, 0.125}, LAB: Triplet{0.4, 1.1, 1.2}, Thickness: 42},
			LookupEntry{RGB: Triplet{0.9, 0.9, 0.9}, LAB: Triplet{0.9, 1, 1}, Thickness: 10},
		),
		"Si": buildTable(t,
			LookupEntry{RGB: Triplet{0.5, 0.25, 0.125}, LAB: Triplet{0.4, 1.1, 1.2}, Thickness: 99},
		),
	}
	loader := func(substrate string) (*LookupTable, error) {
		table, ok := tables[substrate]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLookupTableNotFound, substrate)
		}
		return table, nil
	}
	log := &ResultLog{}
	log.Append(ResultRecord{
		Image: "flake1", Substrate: "Float",
		AverageRGB: Triplet{0.5, 0.25, 0.125}, AverageLAB: Triplet{0.4, 1.1, 1.2},
		ThicknessRGB: "40.0", ThicknessLAB: "40.0", NoteRGB: "Approximate match", NoteLAB: "Approximate match",
	})
	// Same sample logged again before the table changed; becomes a duplicate.
	log.Append(ResultRecord{
		Image: "flake1", Substrate: "Float",
		AverageRGB: Triplet{0.5, 0.25, 0.125}, AverageLAB: Triplet{0.4, 1.1, 1.2},
		ThicknessRGB: "41.0", ThicknessLAB: "41.0", NoteRGB: "No match", NoteLAB: "No match",
	})
	log.Append(ResultRecord{
		Image: "flake2", Substrate: "Si",
		AverageRGB: Triplet{0.5, 0.25, 0.125}, AverageLAB: Triplet{0.4, 1.1, 1.2},
	})
	log.Append(ResultRecord{
		Image: ManualImageName, Substrate: "Float",
		AverageRGB: Triplet{0.8, 0.9, 0.9}, AverageLAB: Triplet{0.9, 1, 1},
	})
	return log, loader
}

func TestRemap(t *testing.T) {
	log, loader := remapFixture(t)
	got, err := Remap(log, loader, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	want := []ResultRecord{
		{
			Image: "flake1", Substrate: "Float",
			AverageRGB: Triplet{0.5, 0.25, 0.125}, AverageLAB: Triplet{0.4, 1.1, 1.2},
			ThicknessRGB: "42.0", ThicknessLAB: "42.0", NoteRGB: "Exact match", NoteLAB: "Exact match",
		},
		{
			Image: "flake2", Substrate: "Si",
			AverageRGB: Triplet{0.5, 0.25, 0.125}, AverageLAB: Triplet{0.4, 1.1, 1.2},
			ThicknessRGB: "99.0", ThicknessLAB: "99.0", NoteRGB: "Exact match", NoteLAB: "Exact match",
		},
		{
			Image: ManualImageName, Substrate: "Float",
			AverageRGB: Triplet{0.8, 0.9, 0.9}, AverageLAB: Triplet{0.9, 1, 1},
			ThicknessRGB: "10.0", ThicknessLAB: "10.0", NoteRGB: "Approximate match", NoteLAB: "Exact match",
		},
	}
	if diff := cmp.Diff(want, got.Records); diff != "" {
		t.Errorf("Remap mismatch (-want +got):\n%s", diff)
	}
	if log.Len() != 4 {
		t.Errorf("input log modified: %d records", log.Len())
	}
}

func TestRemapIdempotent(t *testing.T) {
	log, loader := remapFixture(t)
	once, err := Remap(log, loader, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Remap(once, loader, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second remap changed the log (-once +twice):\n%s", diff)
	}
}

func TestRemapAbortsOnMissingTable(t *testing.T) {
	log, loader := remapFixture(t)
	log.Append(ResultRecord{Image: "x", Substrate: "D263"})
	before := &ResultLog{Records: append([]ResultRecord(nil), log.Records...)}

	got, err := Remap(log, loader, DefaultThreshold)
	if !errors.Is(err, ErrLookupTableNotFound) {
		t.Fatalf("Remap error = %v, want ErrLookupTableNotFound", err)
	}
	if got != nil {
		t.Errorf("Remap returned a partial log: %+v", got)
	}
	if diff := cmp.Diff(before, log); diff != "" {
		t.Errorf("input log modified (-before +after):\n%s", diff)
	}
}

func TestRemapEmptyTable(t *testing.T) {
	log := &ResultLog{Records: []ResultRecord{{Image: "x", Substrate: "Si"}}}
	loader := func(substrate string) (*LookupTable, error) { return NewLookupTable(substrate), nil }
	if _, err := Remap(log, loader, DefaultThreshold); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Remap error = %v, want ErrEmptyTable", err)
	}
}

func TestResultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	log, _ := remapFixture(t)
	for _, rec := range log.Records {
		if err := AppendResultFile(path, rec); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "Average_RGB"); n != 1 {
		t.Errorf("header written %d times", n)
	}
	if !strings.Contains(string(data), `"(0.5, 0.25, 0.125)"`) {
		t.Errorf("tuple not quoted as expected:\n%s", data)
	}

	loaded, err := LoadResults(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(log, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if err := SaveResults(path, &ResultLog{Records: loaded.Records[:1]}); err != nil {
		t.Fatal(err)
	}
	again, err := LoadResults(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Len() != 1 {
		t.Errorf("after SaveResults: %d records, want 1", again.Len())
	}
}

func TestLoadResultsErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadResults(filepath.Join(dir, "missing.csv")); !errors.Is(err, ErrNoResults) {
		t.Errorf("missing file error = %v, want ErrNoResults", err)
	}

	bad := strings.Join(ResultColumns, ",") + "\nimg,Float,\"(0.5, x, 1)\",\"(1, 1, 1)\",1.0,1.0,Exact match,Exact match\n"
	if _, err := ReadResults(strings.NewReader(bad)); !errors.Is(err, ErrMalformedResultRecord) {
		t.Errorf("bad tuple error = %v, want ErrMalformedResultRecord", err)
	}

	nanRow := strings.Join(ResultColumns, ",") + "\nimg,Float,\"(nan, 0.5, 0.5)\",\"(1.0, 1.0, 1.0)\",,,No match,No match\n"
	if _, err := ReadResults(strings.NewReader(nanRow)); !errors.Is(err, ErrMalformedResultRecord) {
		t.Errorf("nan tuple error = %v, want ErrMalformedResultRecord", err)
	}

	if _, err := ReadResults(strings.NewReader("Image,Substrate\nx,Float\n")); !errors.Is(err, ErrMalformedResultRecord) {
		t.Errorf("bad header error = %v, want ErrMalformedResultRecord", err)
	}
}
