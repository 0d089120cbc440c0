// Package analytics answers free-text questions about a dataset by matching keywords
// onto a fixed, ordered set of aggregations and returning render-ready responses.
package analytics

import (
	"fmt"
)

// RoleAssistant is the role tag carried by every Response.
const RoleAssistant = "assistant"

// Response is the structured answer to a query.
type Response struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Chart   *Chart `json:"chart,omitempty"`
	Table   *Table `json:"dataframe,omitempty"`
	Code    string `json:"code,omitempty"`

	// Rule names the dispatch rule that produced the response; empty for help and errors.
	Rule string `json:"-"`
}

// HasVisual reports whether the response carries a chart or a table.
func (r Response) HasVisual() bool {
	return r.Chart != nil || r.Table != nil
}

// ChartKind is the visual form of a chart.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
)

// Orientation of bar charts.
type Orientation string

const (
	Vertical   Orientation = "v"
	Horizontal Orientation = "h"
)

// Chart describes a chart independently of how it is drawn.
type Chart struct {
	Kind        ChartKind   `json:"kind"`
	Orientation Orientation `json:"orientation,omitempty"`
	Title       string      `json:"title"`
	XLabel      string      `json:"x_label,omitempty"`
	YLabel      string      `json:"y_label,omitempty"`
	Theme       string      `json:"theme"`
	Series      []Series    `json:"series"`
}

// Series is one named sequence of chart points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Point is a single labelled value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// CellKind describes the values of a table column.
type CellKind string

const (
	CellText    CellKind = "text"
	CellNumber  CellKind = "number"
	CellInteger CellKind = "integer"
	CellDate    CellKind = "date"
)

// TableColumn names a table column and the kind of its cells.
type TableColumn struct {
	Name string   `json:"name"`
	Kind CellKind `json:"kind"`
}

// Table is a result table. Number cells hold float64, integer cells hold int,
// text and date cells hold string.
type Table struct {
	Columns []TableColumn `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Sum totals a numeric column.
func (t *Table) Sum(column string) (float64, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return 0, fmt.Errorf("column %q not found", column)
	}
	var total float64
	for i, row := range t.Rows {
		switch v := row[idx].(type) {
		case float64:
			total += v
		case int:
			total += float64(v)
		default:
			return 0, fmt.Errorf("row %d column %q is not numeric", i, column)
		}
	}
	return total, nil
}

// AnalysisError is any failure raised while computing an aggregation or building a chart.
type AnalysisError struct {
	Rule string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Rule == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Rule, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
