package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"insightforge/domain/dataset"
	"insightforge/internal"
	"insightforge/internal/errors"
	"insightforge/ports"
)

// Delimiters tried when sniffing a CSV file, in tie-break order
var Delimiters = []rune{',', ';', '\t', '|'}

// DataReader handles reading Excel and CSV files into datasets. Cell values
// stay strings; type inference decides what they mean.
type DataReader struct {
	config ReaderConfig
	logger *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig, logger *internal.Logger) *DataReader {
	if config.SniffLines <= 0 {
		config.SniffLines = DefaultReaderConfig().SniffLines
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &DataReader{config: config, logger: logger.With("reader")}
}

var _ ports.DatasetReader = (*DataReader)(nil)

// Read loads a file from disk
func (r *DataReader) Read(path string) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("file " + path)
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return r.ReadFrom(file, path)
}

// ReadFrom loads an upload; the extension of name selects the format
func (r *DataReader) ReadFrom(src io.Reader, name string) (*dataset.Dataset, error) {
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}

	start := time.Now()
	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".tsv", ".txt":
		rows, err = r.readCSV(content)
	case ".xlsx", ".xlsm":
		rows, err = r.readExcel(content)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type %q", ext))
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d raw rows)", name, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// readCSV decodes the text and parses it with the best scoring delimiter
func (r *DataReader) readCSV(content []byte) ([][]string, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode CSV text")
	}

	delim := SniffDelimiter(text, r.config.SniffLines)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// decodeText turns raw bytes into UTF-8. It honours UTF-8 and UTF-16 byte
// order marks and falls back to Windows-1252 for legacy exports.
func decodeText(content []byte) (string, error) {
	switch {
	case bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}):
		return string(content[3:]), nil
	case bytes.HasPrefix(content, []byte{0xFF, 0xFE}), bytes.HasPrefix(content, []byte{0xFE, 0xFF}):
		decoded, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), content)
		return string(decoded), err
	case utf8.Valid(content):
		return string(content), nil
	default:
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), content)
		return string(decoded), err
	}
}

// SniffDelimiter scores each candidate delimiter over the first lines. More
// columns score higher; rows that disagree with the header width and a
// single column that still contains another candidate are penalized.
func SniffDelimiter(text string, lines int) rune {
	sample := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(sample) > lines {
		sample = sample[:lines]
	}
	head := strings.Join(sample, "\n")

	best, bestScore := ',', -1<<31
	for _, delim := range Delimiters {
		reader := csv.NewReader(strings.NewReader(head))
		reader.Comma = delim
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}

		width := len(records[0])
		score := width * 100
		for _, rec := range records[1:] {
			if len(rec) != width {
				score -= 50
			}
		}
		if width == 1 {
			for _, other := range Delimiters {
				if other != delim && strings.ContainsRune(records[0][0], other) {
					score -= 500
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

// readExcel reads the configured sheet, or the most populated one, and
// skips title rows above the header.
func (r *DataReader) readExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := r.config.Sheet
	var rows [][]string
	if sheet != "" {
		rows, err = f.GetRows(sheet)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
		}
	} else {
		most := -1
		for _, name := range f.GetSheetList() {
			candidate, err := f.GetRows(name)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read sheet %s", name)
			}
			if filled := countFilled(candidate); filled > most {
				most, sheet, rows = filled, name, candidate
			}
		}
	}
	r.logger.Debug("using sheet %s (%d rows)", sheet, len(rows))

	return rows[headerIndex(rows):], nil
}

func countFilled(rows [][]string) int {
	n := 0
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				n++
			}
		}
	}
	return n
}

// headerIndex finds the first row with at least two filled cells of which at
// least half are not numbers.
func headerIndex(rows [][]string) int {
	for i, row := range rows {
		filled, text := 0, 0
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			filled++
			if _, ok := dataset.ParseNumber(cell); !ok {
				text++
			}
		}
		if filled >= 2 && text*2 >= filled {
			return i
		}
	}
	return 0
}

// processRows converts raw string rows into a dataset. Blank cells become
// missing values and fully blank rows are dropped.
func (r *DataReader) processRows(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("file must have at least a header row and one data row")
	}

	headers := normalizeHeaders(rows[0])
	records := make([]dataset.RowRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if r.config.MaxRows > 0 && len(records) == r.config.MaxRows {
			break
		}
		record := make(dataset.RowRecord, len(headers))
		filled := false
		for j, header := range headers {
			var value any
			if j < len(row) {
				if cell := strings.TrimSpace(row[j]); cell != "" {
					value = cell
					filled = true
				}
			}
			record[header] = value
		}
		if filled {
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput("file has a header row but no data rows")
	}

	r.logger.Debug("processed %d columns, %d rows", len(headers), len(records))
	return dataset.New(records, headers), nil
}

// normalizeHeaders trims names, strips stray quotes, names blank headers
// Column_<i> and suffixes duplicates.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}
