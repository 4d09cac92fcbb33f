package filmcolor

import (
	"strings"
	"testing"
)

func TestSetColumnCandidates(t *testing.T) {
	t.Cleanup(func() { SetColumnCandidates(DefaultColumnCandidates()) })

	in := "R,G,B,L,a,b,Dicke\n0.1,0.2,0.3,1,1,1,12\n"
	table, err := ReadTable(strings.NewReader(in), "Si")
	if err != nil {
		t.Fatal(err)
	}
	if table.HasLookupColumns() {
		t.Fatalf("unknown alias accepted: %v", table.Columns)
	}

	SetColumnCandidates(ColumnCandidates{Thickness: []string{"dicke"}})
	table, err = ReadTable(strings.NewReader(in), "Si")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Entries) != 1 || table.Entries[0].Thickness != 12 {
		t.Errorf("entries = %+v", table.Entries)
	}
	if got := getColumnCandidates().ThicknessRGB; len(got) == 0 {
		t.Error("unset field did not fall back to defaults")
	}
}

func TestResolveColumnsChannelCase(t *testing.T) {
	header := []string{" b", "a", "L", "B", "G", "R", ColThickness}
	idx, ok := resolveColumns(header, LookupColumns)
	if !ok {
		t.Fatal("header not resolved")
	}
	want := []int{5, 4, 3, 2, 1, 0, 6}
	for i := range want {
		if idx[i] != want[i] {
			t.Errorf("column %s at %d, want %d", LookupColumns[i], idx[i], want[i])
		}
	}
	if sameColumnSet(append(header, "extra"), LookupColumns) {
		t.Error("extra column accepted")
	}
}
