package ml

import (
	"reflect"
	"testing"
)

func TestNewColumnNumericDetection(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		numeric bool
	}{
		{name: "integers", values: []string{"1", " 2", "3 "}, numeric: true},
		{name: "floats", values: []string{"1.5", "-2e3"}, numeric: true},
		{name: "text", values: []string{"1", "two"}, numeric: false},
		{name: "nan text", values: []string{"NaN", "nan"}, numeric: false},
		{name: "infinity text", values: []string{"1", "Inf", "-infinity"}, numeric: false},
		{name: "empty", values: nil, numeric: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := NewColumn("a", tt.values)
			if col.Numeric() != tt.numeric {
				t.Fatalf("Numeric() = %v, want %v", col.Numeric(), tt.numeric)
			}
		})
	}
}

func TestNonFiniteTextDetectedAsCategorical(t *testing.T) {
	dataset, err := NewDataset("markers", "datasets/markers.csv", "1", []byte("a\nNaN\nInf\nNaN\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	features, err := DetectFeatureTypes(dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if features[0].Type != Categorical {
		t.Fatalf("expected categorical, got %s", features[0])
	}
}

func TestTableSlice(t *testing.T) {
	table := &Table{Columns: []Column{
		NumericColumn("x", []float64{1, 2, 3, 4}),
		NewColumn("c", []string{"a", "b", "c", "d"}),
	}}

	head := table.Slice(0, 2)
	if head.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", head.Rows())
	}
	x, _ := head.Column("x")
	if !x.Numeric() || !reflect.DeepEqual(x.Numbers, []float64{1, 2}) {
		t.Fatalf("unexpected column: %+v", x)
	}

	head.Columns[1].Values[0] = "changed"
	if table.Columns[1].Values[0] != "a" {
		t.Fatal("Slice shares memory with the source table")
	}

	tail := table.Slice(2, 4)
	c, _ := tail.Column("c")
	if !reflect.DeepEqual(c.Values, []string{"c", "d"}) || c.Numeric() {
		t.Fatalf("unexpected column: %+v", c)
	}
}
