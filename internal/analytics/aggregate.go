package analytics

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ashureev/cognichat/internal/dataset"
)

// group is one aggregated bucket.
type group struct {
	Key     string
	Revenue float64
	Units   int
	Count   int
}

// keyFunc extracts a grouping key from a record.
type keyFunc func(dataset.Record) string

var keyFuncs = map[string]keyFunc{
	"month":                 func(r dataset.Record) string { return r.Date.Format("2006-01") },
	dataset.ColCategory:     func(r dataset.Record) string { return r.Category },
	dataset.ColCustomerType: func(r dataset.Record) string { return r.CustomerType },
	dataset.ColRegion:       func(r dataset.Record) string { return r.Region },
}

// groupBy buckets the dataset by the named key, summing revenue and units.
// Buckets are returned in ascending key order, which is chronological for months.
func groupBy(ds *dataset.Dataset, key string) ([]group, error) {
	fn, ok := keyFuncs[key]
	if !ok {
		return nil, fmt.Errorf("unknown grouping key %q", key)
	}
	if ds.Len() == 0 {
		return nil, errEmptyDataset
	}

	index := make(map[string]int)
	var groups []group
	for i := range ds.Len() {
		r := ds.At(i)
		k := fn(r)
		pos, seen := index[k]
		if !seen {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, group{Key: k})
		}
		groups[pos].Revenue += r.Revenue
		groups[pos].Units += r.UnitsSold
		groups[pos].Count++
	}

	slices.SortFunc(groups, func(a, b group) int { return cmp.Compare(a.Key, b.Key) })
	return groups, nil
}

// sortByRevenueDesc orders groups by revenue, highest first. The sort is stable,
// so equal revenues keep their ascending key order.
func sortByRevenueDesc(groups []group) {
	slices.SortStableFunc(groups, func(a, b group) int { return cmp.Compare(b.Revenue, a.Revenue) })
}

// argmaxRevenue returns the index of the first group holding the maximum revenue.
func argmaxRevenue(groups []group) int {
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].Revenue > groups[best].Revenue {
			best = i
		}
	}
	return best
}

func totalRevenue(ds *dataset.Dataset) float64 {
	var total float64
	for i := range ds.Len() {
		total += ds.At(i).Revenue
	}
	return total
}

func totalUnits(ds *dataset.Dataset) int {
	var total int
	for i := range ds.Len() {
		total += ds.At(i).UnitsSold
	}
	return total
}

func meanRating(ds *dataset.Dataset) float64 {
	var sum int
	for i := range ds.Len() {
		sum += ds.At(i).Rating
	}
	return float64(sum) / float64(ds.Len())
}

func distinct(ds *dataset.Dataset, fn keyFunc) int {
	seen := make(map[string]struct{})
	for i := range ds.Len() {
		seen[fn(ds.At(i))] = struct{}{}
	}
	return len(seen)
}

func revenueSeries(name string, groups []group) Series {
	points := make([]Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, Point{Label: g.Key, Value: g.Revenue})
	}
	return Series{Name: name, Points: points}
}

func revenueTable(keyColumn string, groups []group) *Table {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []any{g.Key, g.Revenue})
	}
	return &Table{
		Columns: []TableColumn{
			{Name: keyColumn, Kind: CellText},
			{Name: "Revenue", Kind: CellNumber},
		},
		Rows: rows,
	}
}
