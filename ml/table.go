package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrEmptyTable = errors.New("table has no header")

// Column is one named column of a Table. Numbers is populated only when
// every cell parses as a finite float.
type Column struct {
	Name    string    `json:"name"`
	Values  []string  `json:"values"`
	Numbers []float64 `json:"numbers,omitempty"`
}

// NewColumn parses values and fills Numbers when every cell is a finite
// number. Text such as "NaN" or "Inf" keeps the column non-numeric.
func NewColumn(name string, values []string) Column {
	col := Column{Name: name, Values: append([]string{}, values...)}
	if len(values) == 0 {
		return col
	}
	numbers := make([]float64, 0, len(values))
	for _, value := range values {
		number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
			return col
		}
		numbers = append(numbers, number)
	}
	col.Numbers = numbers
	return col
}

// NumericColumn builds a numeric column from floats.
func NumericColumn(name string, numbers []float64) Column {
	values := make([]string, len(numbers))
	for i, number := range numbers {
		values[i] = strconv.FormatFloat(number, 'g', -1, 64)
	}
	return Column{Name: name, Values: values, Numbers: append([]float64{}, numbers...)}
}

func (c Column) Numeric() bool { return c.Numbers != nil }

func (c Column) Len() int { return len(c.Values) }

func (c Column) clone() Column {
	out := Column{Name: c.Name, Values: append([]string{}, c.Values...)}
	if c.Numbers != nil {
		out.Numbers = append([]float64{}, c.Numbers...)
	}
	return out
}

// Table is column-addressable tabular data in native column order.
type Table struct {
	Columns []Column `json:"columns"`
}

func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = col.clone()
	}
	return out
}

// Slice copies rows [from, to). Columns keep their numeric status even when
// the selected rows alone would parse differently.
func (t *Table) Slice(from, to int) *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = Column{Name: col.Name, Values: append([]string{}, col.Values[from:to]...)}
		if col.Numbers != nil {
			out.Columns[i].Numbers = append([]float64{}, col.Numbers[from:to]...)
		}
	}
	return out
}

// ParseCSV reads a header row followed by data rows.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	header := records[0]
	rows := records[1:]
	table := &Table{Columns: make([]Column, len(header))}
	for j, name := range header {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = row[j]
		}
		table.Columns[j] = NewColumn(strings.TrimSpace(name), values)
	}
	return table, nil
}

func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Names()); err != nil {
		return err
	}
	for i := 0; i < t.Rows(); i++ {
		record := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			if i < col.Len() {
				record[j] = col.Values[i]
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
