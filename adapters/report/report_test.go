package report

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/adapters/stats/engine"
	"insightforge/domain/dataset"
)

func monthlySales() *dataset.Dataset {
	var rows []dataset.RowRecord
	for i := 11; i >= 0; i-- {
		rows = append(rows, dataset.RowRecord{
			"date":  fmt.Sprintf("2024-%02d-01", i+1),
			"sales": 100 + 10*i,
			"cost":  40 + 4*i + i%2,
		})
	}
	return dataset.New(rows, []string{"date", "sales", "cost"})
}

func TestExecutiveSummary(t *testing.T) {
	ds := monthlySales()
	analysis, err := engine.New(nil).Analyze(context.Background(), ds, engine.Options{})
	require.NoError(t, err)

	md := ExecutiveSummary(ds, analysis)
	assert.Contains(t, md, "## Dataset Overview")
	assert.Contains(t, md, "**12** records across **3** dimensions of Financial data")
	assert.Contains(t, md, "primarily **quantitative**")
	assert.Contains(t, md, "**Strongest Relationship**: `sales` and `cost` show a strong positive correlation")
	assert.Contains(t, md, "**Primary Drivers**: variation in `sales` and `cost`")
	assert.Contains(t, md, "from 2024-01-01 to 2024-12-01")
	assert.Contains(t, md, "`sales` has increased by 110.0% over this period")
	assert.Contains(t, md, "### Recommendations")
	assert.NotContains(t, md, "Operational Gaps")
}

func TestExecutiveSummaryWithoutDates(t *testing.T) {
	ds := dataset.New([]dataset.RowRecord{
		{"label": "a", "v": 1},
		{"label": "b", "v": nil},
	}, []string{"label", "v"})
	analysis, err := engine.New(nil).Analyze(context.Background(), ds, engine.Options{})
	require.NoError(t, err)

	md := ExecutiveSummary(ds, analysis)
	assert.Contains(t, md, "No time dimension was detected")
	assert.Contains(t, md, "**Operational Gaps**: `v` is missing 50.0% of its values.")
	assert.Contains(t, md, "primarily **categorical**")
}

func TestHTML(t *testing.T) {
	out := HTML("## Dataset Overview\n\nSome **bold** text.\n\n- one\n- two\n")
	assert.Contains(t, out, `<h2 id="dataset-overview">Dataset Overview</h2>`)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<li>one</li>")
}
