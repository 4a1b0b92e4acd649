package ports

import (
	"context"

	"insightforge/domain/stats"
)

// ResultCache memoizes analyses by content. A miss is (nil, false, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) (*stats.Analysis, bool, error)
	Set(ctx context.Context, key string, analysis *stats.Analysis) error
}
