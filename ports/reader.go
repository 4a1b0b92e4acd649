package ports

import (
	"io"

	"insightforge/domain/dataset"
)

// DatasetReader turns a tabular file into a dataset
type DatasetReader interface {
	// Read loads a file from disk; the extension selects the format
	Read(path string) (*dataset.Dataset, error)
	// ReadFrom loads an upload; name supplies the extension
	ReadFrom(r io.Reader, name string) (*dataset.Dataset, error)
}
