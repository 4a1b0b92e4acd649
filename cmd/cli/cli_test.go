package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSales writes eight monthly rows where revenue = 10*units + 5
func writeSales(t *testing.T, dir, name string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,units,revenue,region\n")
	for i := 0; i < 8; i++ {
		units := 10 + 3*i
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		fmt.Fprintf(&b, "2024-%02d-15,%d,%d,%s\n", i+1, units, 10*units+5, region)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--format", "json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var analysis struct {
		RowCount     int `json:"row_count"`
		ColumnCount  int `json:"column_count"`
		Correlations []struct {
			Col1        string  `json:"col1"`
			Col2        string  `json:"col2"`
			Correlation float64 `json:"correlation"`
		} `json:"correlations"`
	}
	runJSON(t, &analysis, "analyze", path)

	assert.Equal(t, 8, analysis.RowCount)
	assert.Equal(t, 4, analysis.ColumnCount)
	require.Len(t, analysis.Correlations, 1)
	assert.InDelta(t, 1.0, analysis.Correlations[0].Correlation, 1e-9)
}

func TestAnalyzeTableOutput(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "8 rows x 4 columns")
	assert.Contains(t, out, "Correlations")
	assert.Contains(t, out, "revenue")
}

func TestYAMLOutputUsesJSONNames(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	out, err := run(t, "regress", path, "--x", "units", "--y", "revenue", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "x_column: units")
	assert.Contains(t, out, "y_column: revenue")
}

func TestUnknownFormat(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	_, err := run(t, "analyze", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestCorrelateCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var pairs []struct {
		Method      string  `json:"method"`
		Correlation float64 `json:"correlation"`
	}
	runJSON(t, &pairs, "correlate", path, "--method", "spearman")
	require.Len(t, pairs, 1)
	assert.Equal(t, "spearman", pairs[0].Method)
	assert.InDelta(t, 1.0, pairs[0].Correlation, 1e-9)

	var matrix struct {
		Columns []string    `json:"columns"`
		Values  [][]float64 `json:"values"`
	}
	runJSON(t, &matrix, "correlate", path, "--matrix")
	assert.Equal(t, []string{"units", "revenue"}, matrix.Columns)
	require.Len(t, matrix.Values, 2)
	assert.InDelta(t, 1.0, matrix.Values[0][0], 1e-9)

	_, err := run(t, "correlate", path, "--method", "distance")
	assert.Error(t, err)
}

func TestRegressCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var fit struct {
		Slope     float64 `json:"slope"`
		Intercept float64 `json:"intercept"`
		N         int     `json:"n"`
	}
	runJSON(t, &fit, "regress", path, "--x", "units", "--y", "revenue")
	assert.InDelta(t, 10.0, fit.Slope, 1e-9)
	assert.InDelta(t, 5.0, fit.Intercept, 1e-9)
	assert.Equal(t, 8, fit.N)

	out, err := run(t, "regress", path, "--x", "units", "--y", "revenue", "--predict", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Predictions")
	assert.Contains(t, out, "1005")

	_, err = run(t, "regress", path)
	assert.Error(t, err)
}

func TestForecastCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var res struct {
		Error  string `json:"error"`
		Points []struct {
			Type string `json:"type"`
		} `json:"points"`
		Trend struct {
			Direction string `json:"direction"`
		} `json:"trend"`
	}
	runJSON(t, &res, "forecast", path, "--date", "date", "--value", "revenue", "--horizon", "3")
	assert.Empty(t, res.Error)
	assert.Equal(t, "up", res.Trend.Direction)
	assert.Len(t, res.Points, 11)
}

func TestTestCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var out struct {
		Test      string `json:"test"`
		ErrorCode string `json:"error_code"`
	}
	runJSON(t, &out, "test", path, "--kind", "ttest", "--value", "units", "--group", "region")
	assert.Equal(t, "ttest", out.Test)
	assert.Empty(t, out.ErrorCode)

	var unsupported struct {
		ErrorCode string `json:"error_code"`
	}
	runJSON(t, &unsupported, "test", path, "--kind", "chi_square", "--columns", "units,revenue")
	assert.Equal(t, "UNSUPPORTED_TEST", unsupported.ErrorCode)
}

func TestQualityCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	var view struct {
		Quality struct {
			Score float64 `json:"score"`
		} `json:"quality"`
		Domain string `json:"domain"`
	}
	runJSON(t, &view, "quality", path)
	assert.Greater(t, view.Quality.Score, 0.0)
	assert.Equal(t, "Financial", view.Domain)
}

func TestSummaryCommand(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")

	out, err := run(t, "summary", path)
	require.NoError(t, err)
	assert.Contains(t, out, "## Dataset Overview")

	out, err = run(t, "summary", path, "--html")
	require.NoError(t, err)
	assert.Contains(t, out, `<h2 id="dataset-overview">`)
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeSales(t, dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(b, []byte("units,revenue,discount\n20,300,1\n30,400,2\n"), 0o644))

	var cmp struct {
		Files  []string `json:"files"`
		Schema struct {
			Added   []string `json:"added_columns"`
			Removed []string `json:"removed_columns"`
		} `json:"schema_diff"`
		Rows struct {
			Difference int `json:"difference"`
		} `json:"row_diff"`
	}
	runJSON(t, &cmp, "compare", a, b)
	assert.Equal(t, []string{"a.csv", "b.csv"}, cmp.Files)
	assert.Equal(t, []string{"discount"}, cmp.Schema.Added)
	assert.ElementsMatch(t, []string{"date", "region"}, cmp.Schema.Removed)
	assert.Equal(t, -6, cmp.Rows.Difference)
}

func TestStoreAndHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeSales(t, dir, "sales.csv")
	store := filepath.Join(dir, "snapshots.db")

	_, err := run(t, "analyze", path, "--store", store)
	require.NoError(t, err)
	_, err = run(t, "analyze", path, "--store", store)
	require.NoError(t, err)

	var items []struct {
		DatasetKey string `json:"dataset_key"`
		RowCount   int    `json:"row_count"`
	}
	runJSON(t, &items, "history", "sales.csv", "--store", store)
	require.Len(t, items, 2)
	assert.Equal(t, "sales.csv", items[0].DatasetKey)
	assert.Equal(t, 8, items[0].RowCount)

	runJSON(t, &items, "history", "other.csv", "--store", store)
	assert.Empty(t, items)
}

func TestConfigFromEnvironment(t *testing.T) {
	path := writeSales(t, t.TempDir(), "sales.csv")
	t.Setenv("INSIGHTFORGE_CORRELATION_METHOD", "Kendall")

	var pairs []struct {
		Method string `json:"method"`
	}
	runJSON(t, &pairs, "correlate", path)
	require.Len(t, pairs, 1)
	assert.Equal(t, "kendall", pairs[0].Method)

	t.Setenv("INSIGHTFORGE_CORRELATION_THRESHOLD", "2")
	_, err := run(t, "correlate", path)
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSales(t, dir, "sales.csv")
	cfg := filepath.Join(dir, "insightforge.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("forecast_horizon: 2\n"), 0o644))

	var res struct {
		Horizon int `json:"horizon"`
	}
	runJSON(t, &res, "forecast", path, "--date", "date", "--value", "revenue", "--config", cfg)
	assert.Equal(t, 2, res.Horizon)

	_, err := run(t, "forecast", path, "--date", "date", "--value", "revenue", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
