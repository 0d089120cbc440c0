package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// headerAliases maps accepted header spellings to schema column names.
var headerAliases = map[string]string{
	"date":             ColDate,
	"category":         ColCategory,
	"product_category": ColCategory,
	"revenue":          ColRevenue,
	"units_sold":       ColUnitsSold,
	"units":            ColUnitsSold,
	"customer_type":    ColCustomerType,
	"region":           ColRegion,
	"rating":           ColRating,
}

// LoadCSV reads a dataset from a CSV file.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses a header row followed by one record per line.
// Records are validated and sorted by date, preserving file order on equal dates.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(schema))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := headerAliases[name]; ok {
			index[col] = i
		}
	}
	for _, c := range schema {
		if _, ok := index[c.Name]; !ok {
			return nil, fmt.Errorf("missing column %q", c.Name)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	sortByDate(records)

	return &Dataset{records: records}, nil
}

func parseRow(row []string, index map[string]int) (Record, error) {
	field := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}

	date, err := time.Parse(DateLayout, field(ColDate))
	if err != nil {
		return Record{}, fmt.Errorf("parse date: %w", err)
	}
	revenue, err := strconv.ParseFloat(field(ColRevenue), 64)
	if err != nil {
		return Record{}, fmt.Errorf("parse revenue: %w", err)
	}
	units, err := strconv.Atoi(field(ColUnitsSold))
	if err != nil {
		return Record{}, fmt.Errorf("parse units_sold: %w", err)
	}
	rating, err := strconv.Atoi(field(ColRating))
	if err != nil {
		return Record{}, fmt.Errorf("parse rating: %w", err)
	}

	return Record{
		Date:         date,
		Category:     field(ColCategory),
		Revenue:      revenue,
		UnitsSold:    units,
		CustomerType: field(ColCustomerType),
		Region:       field(ColRegion),
		Rating:       rating,
	}, nil
}
