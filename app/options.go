package app

import (
	"insightforge/adapters/stats/engine"
	"insightforge/domain/stats"
	"insightforge/internal/config"
)

// DefaultOptions turns configured engine defaults into analysis options.
// Request options override them field by field through MergeOptions.
func DefaultOptions(cfg config.AnalysisConfig) engine.Options {
	threshold := cfg.CorrelationThreshold
	return engine.Options{
		Dispersion:           stats.Dispersion(cfg.Dispersion),
		TypeSampleSize:       cfg.TypeSampleSize,
		CorrelationMethod:    stats.CorrelationMethod(cfg.CorrelationMethod),
		CorrelationThreshold: &threshold,
		AnomalyLimit:         cfg.MaxAnomalies,
	}
}

// MergeOptions fills the unset fields of req from defaults
func MergeOptions(defaults, req engine.Options) engine.Options {
	out := req
	if out.Dispersion == "" {
		out.Dispersion = defaults.Dispersion
	}
	if out.InferStrategy == "" {
		out.InferStrategy = defaults.InferStrategy
	}
	if out.TypeSampleSize == 0 {
		out.TypeSampleSize = defaults.TypeSampleSize
	}
	if out.CorrelationMethod == "" {
		out.CorrelationMethod = defaults.CorrelationMethod
	}
	if out.CorrelationThreshold == nil {
		out.CorrelationThreshold = defaults.CorrelationThreshold
	}
	if out.AnomalyLimit == 0 {
		out.AnomalyLimit = defaults.AnomalyLimit
	}
	return out
}

// ServiceConfigFrom maps the analysis section onto the service settings
func ServiceConfigFrom(cfg config.AnalysisConfig) ServiceConfig {
	sc := DefaultServiceConfig()
	sc.OffloadRowThreshold = cfg.OffloadRowThreshold
	sc.MaxConcurrent = int64(cfg.Workers)
	return sc
}
