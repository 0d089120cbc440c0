// Package dataset provides the immutable transaction table queried by the analytics dispatcher.
package dataset

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// DateLayout is the calendar-date format used for records, CSV input and table cells.
const DateLayout = "2006-01-02"

// Column names of the fixed schema.
const (
	ColDate         = "date"
	ColCategory     = "category"
	ColRevenue      = "revenue"
	ColUnitsSold    = "units_sold"
	ColCustomerType = "customer_type"
	ColRegion       = "region"
	ColRating       = "rating"
)

// Customer types.
const (
	CustomerNew       = "New"
	CustomerReturning = "Returning"
)

// Categories is the fixed product category enumeration.
var Categories = []string{"Electronics", "Clothing", "Books", "Home", "Sports"}

// Regions is the fixed sales region enumeration.
var Regions = []string{"North", "South", "East", "West"}

// CustomerTypes is the fixed customer type enumeration.
var CustomerTypes = []string{CustomerNew, CustomerReturning}

// Record is a single transaction.
type Record struct {
	Date         time.Time `json:"date"`
	Category     string    `json:"category"`
	Revenue      float64   `json:"revenue"`
	UnitsSold    int       `json:"units_sold"`
	CustomerType string    `json:"customer_type"`
	Region       string    `json:"region"`
	Rating       int       `json:"rating"`
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}
	if math.IsNaN(r.Revenue) || math.IsInf(r.Revenue, 0) || r.Revenue < 0 {
		return fmt.Errorf("revenue must be a finite value >= 0, got %v", r.Revenue)
	}
	if r.UnitsSold < 0 {
		return fmt.Errorf("units_sold must be >= 0, got %d", r.UnitsSold)
	}
	if r.CustomerType == "" {
		return fmt.Errorf("customer_type is required")
	}
	if r.Region == "" {
		return fmt.Errorf("region is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be in [1,5], got %d", r.Rating)
	}
	return nil
}

// ColumnKind classifies a column for display.
type ColumnKind string

const (
	KindDatetime ColumnKind = "datetime"
	KindText     ColumnKind = "text"
	KindNumeric  ColumnKind = "numeric"
)

// Column describes one column of the schema.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

var schema = []Column{
	{Name: ColDate, Kind: KindDatetime},
	{Name: ColCategory, Kind: KindText},
	{Name: ColRevenue, Kind: KindNumeric},
	{Name: ColUnitsSold, Kind: KindNumeric},
	{Name: ColCustomerType, Kind: KindText},
	{Name: ColRegion, Kind: KindText},
	{Name: ColRating, Kind: KindNumeric},
}

// Dataset is an ordered, read-only table of records.
// It is safe for concurrent use because nothing mutates it after New returns.
type Dataset struct {
	records []Record
}

// New validates records and returns a Dataset holding a private copy of them.
func New(records []Record) (*Dataset, error) {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return &Dataset{records: slices.Clone(records)}, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the record at index i.
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// Records returns a copy of all records in order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// Head returns a copy of the first n records, or all of them when n exceeds Len.
func (d *Dataset) Head(n int) []Record {
	if d == nil || n <= 0 {
		return []Record{}
	}
	n = min(n, d.Len())
	return slices.Clone(d.records[:n])
}

// Columns returns the schema in display order.
func (d *Dataset) Columns() []Column {
	return slices.Clone(schema)
}

// DateRange returns the earliest and latest record dates.
func (d *Dataset) DateRange() (time.Time, time.Time, bool) {
	if d.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := d.records[0].Date, d.records[0].Date
	for _, r := range d.records[1:] {
		if r.Date.Before(lo) {
			lo = r.Date
		}
		if r.Date.After(hi) {
			hi = r.Date
		}
	}
	return lo, hi, true
}

func sortByDate(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return a.Date.Compare(b.Date)
	})
}
