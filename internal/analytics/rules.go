package analytics

import (
	"strings"

	"github.com/ashureev/cognichat/internal/dataset"
)

// analyzer computes a response for a query that a rule has claimed.
type analyzer func(ds *dataset.Dataset, maxRows int) (Response, error)

// branch runs its analyzer when any of its required terms occurs in the query.
// A branch without required terms always runs.
type branch struct {
	name     string
	requires []string
	analyze  analyzer
}

// rule claims a query when any of its terms occurs in it. Once claimed, the query
// is answered by the first matching branch, or by the help text if none matches.
type rule struct {
	name     string
	terms    []string
	branches []branch
}

var (
	revenueTerms  = []string{"revenue", "sales", "income", "earnings"}
	trendTerms    = []string{"trend", "time", "month"}
	categoryTerms = []string{"category", "product"}
	topTerms      = []string{"top", "best", "highest"}
	customerTerms = []string{"customer", "new", "returning"}
	regionTerms   = []string{"region", "location", "geographic"}
	summaryTerms  = []string{"summary", "overview", "describe"}
)

// rules is evaluated in order; the first claiming rule owns the query.
var rules = []rule{
	{
		name:  "revenue",
		terms: revenueTerms,
		branches: []branch{
			{name: "revenue_trend", requires: trendTerms, analyze: revenueByMonth},
			{name: "revenue_by_category", requires: categoryTerms, analyze: revenueByCategory},
		},
	},
	{
		name:  "top",
		terms: topTerms,
		branches: []branch{
			{name: "top_categories", requires: categoryTerms, analyze: topCategories},
		},
	},
	{
		name:     "customer",
		terms:    customerTerms,
		branches: []branch{{name: "customer_types", analyze: customerTypes}},
	},
	{
		name:     "region",
		terms:    regionTerms,
		branches: []branch{{name: "regions", analyze: revenueByRegion}},
	},
	{
		name:     "summary",
		terms:    summaryTerms,
		branches: []branch{{name: "summary", analyze: summarize}},
	},
}

// classify returns the branch that answers the query, or false when the help text applies.
func classify(query string) (branch, bool) {
	q := strings.ToLower(query)
	for _, r := range rules {
		if !containsAny(q, r.terms) {
			continue
		}
		for _, b := range r.branches {
			if len(b.requires) == 0 || containsAny(q, b.requires) {
				return b, true
			}
		}
		return branch{}, false
	}
	return branch{}, false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
