package pipeline

import (
	"errors"
	"testing"

	"go.uber.org/multierr"

	"automl/ml"
)

func TestNewDataCleaner(t *testing.T) {
	cleaner := NewDataCleaner()
	if cleaner == nil {
		t.Fatal("NewDataCleaner returned nil")
	}

	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestDataCleaner_Clean(t *testing.T) {
	table := &ml.Table{Columns: []ml.Column{
		ml.NumericColumn("x", []float64{1, 2, 3}),
		ml.NewColumn("city", []string{"ghent", "paris", "rome"}),
	}}

	cleaner := NewDataCleaner()
	issues, err := cleaner.Clean(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}

	stats := cleaner.GetStats()
	if stats.TablesProcessed != 1 || stats.Passed != 1 || stats.Rejected != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDataCleaner_CleanWithInvalidData(t *testing.T) {
	table := &ml.Table{Columns: []ml.Column{
		ml.NewColumn("x", []string{"1", "", "3"}),
		ml.NewColumn("city", []string{"ghent", "NaN", "rome"}),
		ml.NewColumn("x", []string{"4", "5", "6"}),
	}}

	cleaner := NewDataCleaner()
	issues, err := cleaner.Clean(table)
	if !errors.Is(err, ErrDataQuality) {
		t.Fatalf("expected ErrDataQuality, got %v", err)
	}
	if got := len(multierr.Errors(unwrapQuality(err))); got != 3 {
		t.Fatalf("expected 3 combined errors, got %d", got)
	}
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}

	stats := cleaner.GetStats()
	if stats.Rejected != 1 || stats.Issues["missing_value"] != 2 || stats.Issues["duplicate_column"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

// unwrapQuality strips the ErrDataQuality prefix and returns the combined rule errors.
func unwrapQuality(err error) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if !errors.Is(inner, ErrDataQuality) {
				return inner
			}
		}
	}
	return nil
}

func TestConstantColumnRule(t *testing.T) {
	table := &ml.Table{Columns: []ml.Column{
		ml.NewColumn("country", []string{"be", "be", "be"}),
		ml.NewColumn("city", []string{"ghent", "brussels", "liege"}),
	}}

	issues, err := NewDataCleaner().Clean(table)
	if err != nil {
		t.Fatalf("low severity issues must not fail cleaning: %v", err)
	}
	if len(issues) != 1 || issues[0].Column != "country" || issues[0].Severity != SeverityLow {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestEmptyTableRule(t *testing.T) {
	rule := NewEmptyTableRule()

	tests := []struct {
		name    string
		table   *ml.Table
		wantLen int
	}{
		{name: "no columns", table: &ml.Table{}, wantLen: 1},
		{name: "no rows", table: &ml.Table{Columns: []ml.Column{ml.NewColumn("x", nil)}}, wantLen: 1},
		{name: "has rows", table: &ml.Table{Columns: []ml.Column{ml.NewColumn("x", []string{"1"})}}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Apply(tt.table); len(got) != tt.wantLen {
				t.Errorf("Apply() = %+v, want %d issues", got, tt.wantLen)
			}
		})
	}
}

func TestMissingValueRuleMarkers(t *testing.T) {
	rule := &MissingValueRule{Markers: []string{"?"}}
	table := &ml.Table{Columns: []ml.Column{ml.NewColumn("x", []string{"1", "?", ""})}}
	issues := rule.Apply(table)
	if len(issues) != 1 || issues[0].Message != "1 of 3 values missing" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func BenchmarkDataCleaner_Clean(b *testing.B) {
	values := make([]float64, 10000)
	for i := range values {
		values[i] = float64(i)
	}
	table := &ml.Table{Columns: []ml.Column{ml.NumericColumn("x", values)}}
	cleaner := NewDataCleaner()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cleaner.Clean(table)
	}
}
