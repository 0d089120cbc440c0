package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/cognichat/internal/dataset"
)

const chartTheme = "dark"

const topCategoryLimit = 5

var errEmptyDataset = errors.New("dataset is empty")

func revenueByMonth(ds *dataset.Dataset, _ int) (Response, error) {
	months, err := groupBy(ds, "month")
	if err != nil {
		return Response{}, err
	}

	var monthlySum float64
	for _, m := range months {
		monthlySum += m.Revenue
	}
	best := months[argmaxRevenue(months)]

	content := fmt.Sprintf("📈 **Revenue Analysis:**\n\n"+
		"• **Total Revenue:** %s\n"+
		"• **Average Monthly:** %s\n"+
		"• **Best Month:** %s",
		FormatMoney(totalRevenue(ds)),
		FormatMoney(monthlySum/float64(len(months))),
		best.Key,
	)

	return Response{
		Content: content,
		Chart: &Chart{
			Kind:   ChartLine,
			Title:  "Monthly Revenue Trend",
			XLabel: "Date",
			YLabel: "Revenue",
			Theme:  chartTheme,
			Series: []Series{revenueSeries("Revenue", months)},
		},
		Table: revenueTable("Date", months),
		Code:  "dataset.GroupBy(month(date)).Sum(revenue)",
	}, nil
}

func rankedCategories(ds *dataset.Dataset) ([]group, error) {
	categories, err := groupBy(ds, dataset.ColCategory)
	if err != nil {
		return nil, err
	}
	sortByRevenueDesc(categories)
	return categories, nil
}

func revenueByCategory(ds *dataset.Dataset, _ int) (Response, error) {
	categories, err := rankedCategories(ds)
	if err != nil {
		return Response{}, err
	}
	top := categories[0]

	return Response{
		Content: fmt.Sprintf("💰 **Revenue by Category:**\n\nTop performer: **%s** (%s)", top.Key, FormatMoney(top.Revenue)),
		Chart: &Chart{
			Kind:        ChartBar,
			Orientation: Horizontal,
			Title:       "Revenue by Product Category",
			XLabel:      "Revenue",
			YLabel:      "Category",
			Theme:       chartTheme,
			Series:      []Series{revenueSeries("Revenue", categories)},
		},
		Table: revenueTable("Category", categories),
		Code:  "dataset.GroupBy(category).Sum(revenue).SortStable(revenue, desc)",
	}, nil
}

func topCategories(ds *dataset.Dataset, _ int) (Response, error) {
	categories, err := rankedCategories(ds)
	if err != nil {
		return Response{}, err
	}
	categories = categories[:min(topCategoryLimit, len(categories))]
	top := categories[0]

	return Response{
		Content: fmt.Sprintf("🏆 **Top 5 Product Categories:**\n\n1. **%s**: %s", top.Key, FormatMoney(top.Revenue)),
		Chart: &Chart{
			Kind:   ChartPie,
			Title:  "Top 5 Product Categories by Revenue",
			Theme:  chartTheme,
			Series: []Series{revenueSeries("Revenue", categories)},
		},
		Table: revenueTable("Category", categories),
		Code:  fmt.Sprintf("dataset.GroupBy(category).Sum(revenue).SortStable(revenue, desc).Head(%d)", topCategoryLimit),
	}, nil
}

func customerTypes(ds *dataset.Dataset, _ int) (Response, error) {
	customers, err := groupBy(ds, dataset.ColCustomerType)
	if err != nil {
		return Response{}, err
	}

	units := Series{Name: "Units_Sold", Points: make([]Point, 0, len(customers))}
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		units.Points = append(units.Points, Point{Label: c.Key, Value: float64(c.Units)})
		rows = append(rows, []any{c.Key, c.Revenue, c.Units})
	}

	return Response{
		Content: "👥 **Customer Type Analysis:**\n\nBreaking down performance by customer type...",
		Chart: &Chart{
			Kind:        ChartBar,
			Orientation: Vertical,
			Title:       "Revenue by Customer Type",
			XLabel:      "Customer_Type",
			YLabel:      "Revenue",
			Theme:       chartTheme,
			Series:      []Series{revenueSeries("Revenue", customers), units},
		},
		Table: &Table{
			Columns: []TableColumn{
				{Name: "Customer_Type", Kind: CellText},
				{Name: "Revenue", Kind: CellNumber},
				{Name: "Units_Sold", Kind: CellInteger},
			},
			Rows: rows,
		},
		Code: "dataset.GroupBy(customer_type).Agg(Sum(revenue), Sum(units_sold))",
	}, nil
}

func revenueByRegion(ds *dataset.Dataset, _ int) (Response, error) {
	regions, err := groupBy(ds, dataset.ColRegion)
	if err != nil {
		return Response{}, err
	}
	sortByRevenueDesc(regions)
	top := regions[0]

	return Response{
		Content: fmt.Sprintf("🌍 **Regional Performance:**\n\nTop region: **%s** with %s", top.Key, FormatMoney(top.Revenue)),
		Chart: &Chart{
			Kind:        ChartBar,
			Orientation: Vertical,
			Title:       "Revenue by Region",
			XLabel:      "Region",
			YLabel:      "Revenue",
			Theme:       chartTheme,
			Series:      []Series{revenueSeries("Revenue", regions)},
		},
		Table: revenueTable("Region", regions),
		Code:  "dataset.GroupBy(region).Sum(revenue).SortStable(revenue, desc)",
	}, nil
}

func summarize(ds *dataset.Dataset, maxRows int) (Response, error) {
	first, last, ok := ds.DateRange()
	if !ok {
		return Response{}, errEmptyDataset
	}

	var b strings.Builder
	b.WriteString("📊 **Dataset Overview:**\n\n")
	fmt.Fprintf(&b, "• **Time Period:** %s to %s\n", first.Format(dataset.DateLayout), last.Format(dataset.DateLayout))
	fmt.Fprintf(&b, "• **Total Revenue:** %s\n", FormatMoney(totalRevenue(ds)))
	fmt.Fprintf(&b, "• **Units Sold:** %s\n", FormatCount(totalUnits(ds)))
	fmt.Fprintf(&b, "• **Average Rating:** %.1f/5\n", meanRating(ds))
	fmt.Fprintf(&b, "• **Product Categories:** %d\n", distinct(ds, keyFuncs[dataset.ColCategory]))
	fmt.Fprintf(&b, "• **Regions:** %d\n", distinct(ds, keyFuncs[dataset.ColRegion]))
	fmt.Fprintf(&b, "• **Records:** %s", FormatCount(ds.Len()))

	return Response{
		Content: b.String(),
		Table:   previewTable(ds.Head(maxRows)),
		Code:    fmt.Sprintf("dataset.Describe(); dataset.Head(%d)", maxRows),
	}, nil
}

func previewTable(records []dataset.Record) *Table {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Date.Format(dataset.DateLayout),
			r.Category,
			r.Revenue,
			r.UnitsSold,
			r.CustomerType,
			r.Region,
			r.Rating,
		})
	}
	return &Table{
		Columns: []TableColumn{
			{Name: dataset.ColDate, Kind: CellDate},
			{Name: dataset.ColCategory, Kind: CellText},
			{Name: dataset.ColRevenue, Kind: CellNumber},
			{Name: dataset.ColUnitsSold, Kind: CellInteger},
			{Name: dataset.ColCustomerType, Kind: CellText},
			{Name: dataset.ColRegion, Kind: CellText},
			{Name: dataset.ColRating, Kind: CellInteger},
		},
		Rows: rows,
	}
}
