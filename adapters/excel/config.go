package excel

// ReaderConfig holds configuration for tabular file loading
type ReaderConfig struct {
	// Sheet forces an XLSX sheet; empty picks the most populated one
	Sheet string `json:"sheet"`
	// SniffLines is how many lines delimiter detection inspects
	SniffLines int `json:"sniff_lines"`
	// MaxRows stops reading after this many data rows; 0 reads everything
	MaxRows int `json:"max_rows"`
}

// DefaultReaderConfig returns sensible defaults for file loading
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		SniffLines: 20,
	}
}
