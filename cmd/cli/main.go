package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"insightforge/adapters/excel"
	"insightforge/app"
	"insightforge/domain/dataset"
	"insightforge/internal"
	"insightforge/internal/config"
	"insightforge/internal/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand
type cli struct {
	cfgFile  string
	format   string
	logLevel string

	config config.AnalysisConfig
	logger *internal.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "insightforge",
		Short:         "Statistical analysis of CSV and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ./.insightforge.yaml or ~/.insightforge.yaml)")
	root.PersistentFlags().StringVarP(&c.format, "format", "f", formatTable, "output format: json, yaml or table")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (ERROR, WARN, INFO, DEBUG, TRACE)")

	root.AddCommand(
		newAnalyzeCmd(c),
		newCorrelateCmd(c),
		newRegressCmd(c),
		newForecastCmd(c),
		newTestCmd(c),
		newQualityCmd(c),
		newSummaryCmd(c),
		newCompareCmd(c),
		newHistoryCmd(c),
	)
	return root
}

func (c *cli) init() error {
	level := c.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "WARN"
	}
	c.logger = internal.NewLogger(internal.ParseLevel(level))

	cfg, err := loadAnalysisConfig(c.cfgFile)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

// loadAnalysisConfig reads engine defaults. Precedence: env
// (INSIGHTFORGE_*) > config file > defaults.
func loadAnalysisConfig(cfgFile string) (config.AnalysisConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIGHTFORGE")
	v.AutomaticEnv()

	d := config.DefaultAnalysisConfig()
	v.SetDefault("correlation_threshold", d.CorrelationThreshold)
	v.SetDefault("correlation_method", d.CorrelationMethod)
	v.SetDefault("type_sample_size", d.TypeSampleSize)
	v.SetDefault("max_anomalies", d.MaxAnomalies)
	v.SetDefault("forecast_horizon", d.ForecastHorizon)
	v.SetDefault("offload_row_threshold", d.OffloadRowThreshold)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("dispersion", d.Dispersion)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.AnalysisConfig{}, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read %s", cfgFile)
		}
	} else {
		v.SetConfigName(".insightforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// optional
		_ = v.ReadInConfig()
	}

	var cfg config.AnalysisConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return config.AnalysisConfig{}, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to decode config")
	}
	cfg.CorrelationMethod = strings.ToLower(cfg.CorrelationMethod)
	cfg.Dispersion = strings.ToLower(cfg.Dispersion)
	if err := cfg.Validate(); err != nil {
		return config.AnalysisConfig{}, err
	}
	return cfg, nil
}

func (c *cli) read(path string) (*dataset.Dataset, error) {
	ds, err := excel.NewDataReader(excel.DefaultReaderConfig(), c.logger).Read(path)
	if err != nil {
		return nil, err
	}
	c.logger.Info("loaded %s: %d rows x %d columns", filepath.Base(path), ds.Len(), len(ds.Columns))
	return ds, nil
}

func (c *cli) serviceConfig() app.ServiceConfig {
	return app.ServiceConfigFrom(c.config)
}
