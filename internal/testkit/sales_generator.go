package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"insightforge/domain/dataset"
)

// SalesGeneratorConfig configures the sales data generator
type SalesGeneratorConfig struct {
	Rows         int       `json:"rows"`
	Regions      []string  `json:"regions"`
	StartDate    time.Time `json:"start_date"`
	Months       int       `json:"months"`
	MonthlyTrend float64   `json:"monthly_trend"` // units added per month
	NoiseStd     float64   `json:"noise_std"`
	MissingRate  float64   `json:"missing_rate"` // share of discount cells left empty
	Outliers     int       `json:"outliers"`     // revenue spikes injected at the end
	Seed         int64     `json:"seed"`
}

// DefaultSalesConfig returns sensible defaults for sales data generation
func DefaultSalesConfig() SalesGeneratorConfig {
	return SalesGeneratorConfig{
		Rows:         240,
		Regions:      []string{"north", "south", "east", "west"},
		StartDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Months:       12,
		MonthlyTrend: 2,
		NoiseStd:     3,
		MissingRate:  0.05,
		Seed:         42,
	}
}

// SalesColumns is the column order of generated datasets
var SalesColumns = []string{"order_id", "date", "region", "units", "unit_price", "revenue", "discount"}

// SalesDataGenerator produces order rows where revenue follows units and
// units trend upward month over month
type SalesDataGenerator struct {
	config SalesGeneratorConfig
	rng    *rand.Rand
}

// NewSalesDataGenerator creates a new sales data generator
func NewSalesDataGenerator(config SalesGeneratorConfig) *SalesDataGenerator {
	if config.Months <= 0 {
		config.Months = 1
	}
	if len(config.Regions) == 0 {
		config.Regions = []string{"all"}
	}
	return &SalesDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the dataset. The same config always yields the same rows.
func (g *SalesDataGenerator) Generate() *dataset.Dataset {
	rows := make([]dataset.RowRecord, 0, g.config.Rows)
	perMonth := int(math.Ceil(float64(g.config.Rows) / float64(g.config.Months)))

	for i := 0; i < g.config.Rows; i++ {
		month := i / perMonth
		date := g.config.StartDate.AddDate(0, month, g.rng.Intn(28))

		units := 20 + g.config.MonthlyTrend*float64(month) + g.rng.NormFloat64()*g.config.NoiseStd
		units = math.Max(1, math.Round(units))
		price := 9.99 + float64(g.rng.Intn(3))*5

		row := dataset.RowRecord{
			"order_id":   fmt.Sprintf("ORD-%05d", i+1),
			"date":       date.Format("2006-01-02"),
			"region":     g.config.Regions[g.rng.Intn(len(g.config.Regions))],
			"units":      units,
			"unit_price": price,
			"revenue":    math.Round(units*price*100) / 100,
			"discount":   math.Round(g.rng.Float64()*20) / 100,
		}
		if g.rng.Float64() < g.config.MissingRate {
			row["discount"] = nil
		}
		rows = append(rows, row)
	}

	for i := 0; i < g.config.Outliers && i < len(rows); i++ {
		row := rows[len(rows)-1-i]
		row["revenue"] = row["revenue"].(float64) * 50
	}

	return dataset.New(rows, SalesColumns)
}

// Monthly returns one row per month with a linear value series,
// value = base + step*month, dated on the first of each month
func Monthly(start time.Time, months int, base, step float64) *dataset.Dataset {
	rows := make([]dataset.RowRecord, 0, months)
	for m := 0; m < months; m++ {
		rows = append(rows, dataset.RowRecord{
			"date":  start.AddDate(0, m, 0).Format("2006-01-02"),
			"value": base + step*float64(m),
		})
	}
	return dataset.New(rows, []string{"date", "value"})
}
