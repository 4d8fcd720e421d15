package query

import "testing"

func TestRenderCSV(t *testing.T) {
	resp := &Response{
		Columns: []string{"region", "Total"},
		Rows: [][]string{
			{"North", "120.5"},
			{"South, East", "88"},
		},
	}

	got := string(renderCSV(resp))
	want := "region,Total\nNorth,120.5\n\"South, East\",88\n"
	if got != want {
		t.Errorf("renderCSV = %q, want %q", got, want)
	}
}
