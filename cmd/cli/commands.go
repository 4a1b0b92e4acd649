package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"insightforge/adapters/postgres"
	"insightforge/adapters/report"
	"insightforge/adapters/stats/correlation"
	"insightforge/adapters/stats/engine"
	"insightforge/adapters/stats/forecast"
	"insightforge/adapters/stats/hypothesis"
	"insightforge/adapters/stats/profile"
	"insightforge/adapters/stats/quality"
	"insightforge/adapters/stats/regression"
	"insightforge/app"
	"insightforge/domain/core"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
	"insightforge/internal/migration"
	"insightforge/ports"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var store, key string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Profile a dataset: column stats, correlations, outliers and quality",
		Long: `Run the full analysis over a CSV or XLSX file.

With --store the result is also saved to a local SQLite snapshot database
under --key (default: the file name), viewable later with "history".

Example: insightforge analyze sales.csv --store snapshots.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}

			var repo ports.AnalysisRepository
			if store != "" {
				db, err := openStore(cmd, store)
				if err != nil {
					return err
				}
				defer db.Close()
				repo = postgres.NewAnalysisRepository(db)
				if key == "" {
					key = filepath.Base(args[0])
				}
			}

			svc := app.NewAnalysisService(engine.New(c.logger), nil, repo, nil, c.logger, c.serviceConfig())
			defer svc.Close()

			analysis, err := svc.Analyze(cmd.Context(), core.DatasetKey(key), ds, app.DefaultOptions(c.config))
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), c.format, analysis, func() []section {
				return analysisSections(analysis)
			})
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "SQLite file to save the analysis snapshot in")
	cmd.Flags().StringVar(&key, "key", "", "dataset key for the snapshot (default: file name)")
	return cmd
}

func newCorrelateCmd(c *cli) *cobra.Command {
	var method string
	var threshold float64
	var columns []string
	var matrix bool

	cmd := &cobra.Command{
		Use:   "correlate <file>",
		Short: "Correlate every pair of numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}

			opts := correlation.Options{
				Method:    domainstats.CorrelationMethod(strings.ToLower(c.config.CorrelationMethod)),
				Threshold: c.config.CorrelationThreshold,
				Columns:   columns,
			}
			if cmd.Flags().Changed("method") {
				opts.Method = domainstats.CorrelationMethod(strings.ToLower(method))
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			switch opts.Method {
			case domainstats.Pearson, domainstats.Spearman, domainstats.Kendall:
			default:
				return errors.InvalidInput("unknown correlation method " + string(opts.Method))
			}

			if matrix {
				m := correlation.Matrix(ds, opts)
				return write(cmd.OutOrStdout(), c.format, m, func() []section {
					return []section{matrixSection(m)}
				})
			}
			pairs := correlation.Calculate(ds, opts)
			if pairs == nil {
				pairs = []domainstats.CorrelationData{}
			}
			return write(cmd.OutOrStdout(), c.format, pairs, func() []section {
				return []section{correlationSection(pairs)}
			})
		},
	}

	cmd.Flags().StringVar(&method, "method", "pearson", "pearson, spearman or kendall")
	cmd.Flags().Float64Var(&threshold, "threshold", correlation.DefaultThreshold, "drop pairs with |r| at or below this")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "restrict to these columns")
	cmd.Flags().BoolVar(&matrix, "matrix", false, "print the full correlation matrix")
	return cmd
}

func newRegressCmd(c *cli) *cobra.Command {
	var x, y, target string
	var features []string
	var predictAt []float64

	cmd := &cobra.Command{
		Use:   "regress <file>",
		Short: "Fit a simple (--x/--y) or multiple (--target/--features) linear regression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}

			switch {
			case target != "":
				fit := regression.Multiple(ds, target, features)
				return write(cmd.OutOrStdout(), c.format, fit, func() []section {
					return []section{multipleRegressionSection(fit)}
				})
			case x != "" && y != "":
				fit := regression.Simple(ds, x, y)
				var rows [][]string
				for _, at := range predictAt {
					if v, err := regression.Predict(fit, at); err == nil {
						rows = append(rows, []string{num(at), num(v)})
					}
				}
				return write(cmd.OutOrStdout(), c.format, fit, func() []section {
					s := []section{regressionSection(fit)}
					if len(rows) > 0 {
						s = append(s, section{title: "Predictions", headers: []string{x, y}, rows: rows})
					}
					return s
				})
			default:
				return errors.InvalidInput("either --x and --y or --target and --features are required")
			}
		},
	}

	cmd.Flags().StringVar(&x, "x", "", "independent column")
	cmd.Flags().StringVar(&y, "y", "", "dependent column")
	cmd.Flags().StringVar(&target, "target", "", "target column for multiple regression")
	cmd.Flags().StringSliceVar(&features, "features", nil, "feature columns for multiple regression")
	cmd.Flags().Float64SliceVar(&predictAt, "predict", nil, "x values to evaluate the simple fit at")
	return cmd
}

func newForecastCmd(c *cli) *cobra.Command {
	var dateCol, valueCol string
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast <file>",
		Short: "Project a monthly trend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("horizon") {
				horizon = c.config.ForecastHorizon
			}
			res := forecast.Forecast(ds, dateCol, valueCol, horizon)
			return write(cmd.OutOrStdout(), c.format, res, func() []section {
				return forecastSections(res)
			})
		},
	}

	cmd.Flags().StringVar(&dateCol, "date", "", "date column")
	cmd.Flags().StringVar(&valueCol, "value", "", "numeric column to project")
	cmd.Flags().IntVar(&horizon, "horizon", engine.DefaultHorizon, "months to project")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newTestCmd(c *cli) *cobra.Command {
	var req hypothesis.TestRequest
	var kind string

	cmd := &cobra.Command{
		Use:   "test <file>",
		Short: "Run a hypothesis test (ttest, normality or anova)",
		Long: `Run a hypothesis test.

Examples:
  insightforge test data.csv --kind ttest --columns before,after
  insightforge test data.csv --kind ttest --value revenue --group region
  insightforge test data.csv --kind normality --value revenue
  insightforge test data.csv --kind anova --value revenue --group region`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}
			req.Kind = domainstats.TestKind(strings.ToLower(kind))
			out := hypothesis.Run(ds, req)
			return write(cmd.OutOrStdout(), c.format, out, func() []section {
				return []section{testSection(out)}
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "ttest, normality or anova")
	cmd.Flags().StringSliceVar(&req.Columns, "columns", nil, "numeric columns compared directly")
	cmd.Flags().StringVar(&req.ValueColumn, "value", "", "numeric column split by --group")
	cmd.Flags().StringVar(&req.GroupColumn, "group", "", "categorical column defining the groups")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// qualityView is the output of the quality command
type qualityView struct {
	Quality         *domainstats.QualityReport   `json:"quality"`
	Anomalies       []domainstats.Anomaly        `json:"anomalies"`
	Findings        []string                     `json:"findings"`
	Missing         []domainstats.MissingSummary `json:"missing"`
	Recommendations []quality.Recommendation     `json:"recommendations"`
	Domain          string                       `json:"domain"`
}

func newQualityCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "quality <file>",
		Short: "Score data quality and list anomalies and recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}
			analysis, err := engine.New(c.logger).Analyze(cmd.Context(), ds, app.DefaultOptions(c.config))
			if err != nil {
				return err
			}

			view := qualityView{
				Quality:         analysis.Quality,
				Anomalies:       analysis.Anomalies,
				Findings:        analysis.Findings,
				Missing:         profile.MissingSummary(ds),
				Recommendations: quality.Recommendations(ds, analysis.ColumnStats, analysis.Correlations),
				Domain:          analysis.Domain,
			}
			return write(cmd.OutOrStdout(), c.format, view, func() []section {
				return qualitySections(view)
			})
		},
	}
}

func newSummaryCmd(c *cli) *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Write a markdown (or HTML) executive summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.read(args[0])
			if err != nil {
				return err
			}
			analysis, err := engine.New(c.logger).Analyze(cmd.Context(), ds, app.DefaultOptions(c.config))
			if err != nil {
				return err
			}
			md := report.ExecutiveSummary(ds, analysis)
			if asHTML {
				md = report.HTML(md)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "render HTML instead of markdown")
	return cmd
}

func newCompareCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <file-a> <file-b>",
		Short: "Compare the schema, size and numeric means of two datasets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.read(args[0])
			if err != nil {
				return err
			}
			b, err := c.read(args[1])
			if err != nil {
				return err
			}
			cmp := quality.Compare(a, b, filepath.Base(args[0]), filepath.Base(args[1]))
			return write(cmd.OutOrStdout(), c.format, cmp, func() []section {
				return compareSections(cmp)
			})
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var store string
	var limit int

	cmd := &cobra.Command{
		Use:   "history <key>",
		Short: "List analysis snapshots stored with analyze --store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd, store)
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := postgres.NewAnalysisRepository(db).ListByKey(cmd.Context(), core.DatasetKey(args[0]), limit)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), c.format, items, func() []section {
				rows := make([][]string, 0, len(items))
				for _, it := range items {
					rows = append(rows, []string{
						it.CreatedAt.Format("2006-01-02 15:04:05"), it.ID.String(), it.Fingerprint.Short(),
						strconv.Itoa(it.RowCount), strconv.Itoa(it.ColumnCount), fmt.Sprintf("%.1f", it.QualityScore),
					})
				}
				return []section{{
					title:   "Snapshots of " + args[0],
					headers: []string{"created", "id", "fingerprint", "rows", "columns", "quality"},
					rows:    rows,
				}}
			})
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "SQLite snapshot database")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum snapshots to list")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func openStore(cmd *cobra.Command, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.DatabaseError("failed to open "+path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migration.NewRunner().Run(cmd.Context(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
