package quality

import (
	"fmt"
	"math"
	"strings"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

// Recommendation is an actionable suggestion derived from the profile
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Category    string `json:"category"`
	Action      string `json:"action,omitempty"`
}

const (
	StrongLinkThreshold = 0.75
	maxStrongLinks      = 2
	RepairMissingPct    = 10.0
	HighCardinality     = 50
)

// Recommendations suggests next steps. Correlations are expected sorted by
// strength, as the correlation engine returns them.
func Recommendations(ds *dataset.Dataset, columnStats []domainstats.ColumnStats, correlations []domainstats.CorrelationData) []Recommendation {
	recs := []Recommendation{}

	var namedDate string
	hasDate := false
	for _, cs := range columnStats {
		lower := strings.ToLower(cs.Name)
		if namedDate == "" && (strings.Contains(lower, "date") || strings.Contains(lower, "time")) {
			namedDate = cs.Name
		}
		if cs.Type == dataset.TypeDate {
			hasDate = true
		}
	}
	switch {
	case hasDate:
		recs = append(recs, Recommendation{
			Title:       "Forecasting Opportunity",
			Description: "The dataset contains dated records. Project the monthly trend forward with a forecast.",
			Impact:      "medium",
			Category:    "trend",
			Action:      "forecast",
		})
	case namedDate != "":
		recs = append(recs, Recommendation{
			Title:       "Unparsed Dates",
			Description: fmt.Sprintf("Convert column '%s' to a date format to enable time-based analysis.", namedDate),
			Impact:      "medium",
			Category:    "quality",
		})
	default:
		recs = append(recs, Recommendation{
			Title:       "No Time Dimension",
			Description: "Add a 'Date' or 'Time' column to enable time-series analysis and trend visualization.",
			Impact:      "low",
			Category:    "trend",
		})
	}

	links := 0
	for _, c := range correlations {
		if links == maxStrongLinks {
			break
		}
		if math.Abs(c.Correlation) <= StrongLinkThreshold {
			continue
		}
		links++
		recs = append(recs, Recommendation{
			Title: "Strong Predictive Link",
			Description: fmt.Sprintf("A powerful correlation (%.1f%%) exists between %s and %s. Use regression analysis to model this relationship.",
				c.Correlation*100, c.Col1, c.Col2),
			Impact:   "high",
			Category: "correlation",
			Action:   "regression",
		})
	}

	rows := ds.Len()
	for _, cs := range columnStats {
		if cs.MissingPercent > RepairMissingPct {
			recs = append(recs, Recommendation{
				Title: "Data Integrity Risk",
				Description: fmt.Sprintf("Column %q has %.1f%% missing values. Consider imputing with mean/median or dropping it.",
					cs.Name, cs.MissingPercent),
				Impact:   "high",
				Category: "quality",
			})
		}
		if cs.Type == dataset.TypeCategorical && cs.Unique > HighCardinality && float64(cs.Unique) < float64(rows)*0.9 {
			recs = append(recs, Recommendation{
				Title: "High Cardinality",
				Description: fmt.Sprintf("Column %q has %d unique values. Consider grouping minor categories.",
					cs.Name, cs.Unique),
				Impact:   "low",
				Category: "quality",
			})
		}
		if rows > 0 && cs.Unique == rows && isIdentifierName(cs.Name) {
			recs = append(recs, Recommendation{
				Title:       "Identifier Column",
				Description: fmt.Sprintf("Column %q appears to be a unique identifier. It provides no analytical value for aggregation.", cs.Name),
				Impact:      "low",
				Category:    "quality",
			})
		}
	}

	for _, cs := range columnStats {
		if !cs.IsNumeric() || cs.Mean == nil || cs.Std == nil {
			continue
		}
		mean := *cs.Mean
		if mean == 0 {
			mean = 1
		}
		if *cs.Std > mean*2 {
			recs = append(recs, Recommendation{
				Title:       "High Volatility Detected",
				Description: fmt.Sprintf("The variance in %q is exceptionally high. Investigate for outliers or sub-segments.", cs.Name),
				Impact:      "medium",
				Category:    "anomaly",
				Action:      "outliers",
			})
			break
		}
	}
	return recs
}

func isIdentifierName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, " id") ||
		strings.HasPrefix(lower, "id_") || strings.HasSuffix(name, "Id") || strings.HasSuffix(name, "ID")
}

type domainKeywords struct {
	name     string
	keywords []string
}

// domains are scored in this order; the first best score wins
var domains = []domainKeywords{
	{"Financial", []string{"revenue", "profit", "cost", "price", "sales", "budget", "expense", "currency", "tax", "margin"}},
	{"HR", []string{"employee", "salary", "department", "hire", "date", "performance", "turnover", "attrition", "tenure"}},
	{"Commercial", []string{"customer", "product", "order", "churn", "segment", "marketing", "campaign", "lead", "conversion", "store"}},
	{"Healthcare", []string{"patient", "diagnosis", "treatment", "drug", "hospital", "doctor", "admission", "discharge"}},
	{"Supply Chain", []string{"inventory", "stock", "supplier", "shipping", "delivery", "logistics", "warehouse"}},
	{"Education", []string{"student", "grade", "course", "teacher", "school", "exam", "attendance"}},
}

// GeneralDomain is returned when no keyword matches
const GeneralDomain = "General"

// DetectDomain guesses the business domain from column names. Each keyword
// contained in any column name scores one point.
func DetectDomain(columns []string) string {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}

	best, bestScore := GeneralDomain, 0
	for _, d := range domains {
		score := 0
		for _, k := range d.keywords {
			for _, c := range lower {
				if strings.Contains(c, k) {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = d.name, score
		}
	}
	return best
}
