package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

var (
	curveHeaders = []string{
		"Corrected Displacement (mm)", "Force (kN)", "Work (J)", "Specific Energy (kWh/t)",
	}
	summaryHeaders = []string{
		"Sample", "Mass (g)", "Total Specific Energy (kWh/t)", "Pressure (N/mm^2)", "Compression Ratio",
	}
)

// CSVWriter writes CSV files below a base directory. It is not safe for
// concurrent use.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
	stems  *nameSet
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		dir:    dir,
		logger: logger.With(slog.String("component", "csv_writer")),
		stems:  newNameSet(),
	}
}

// Reserve keeps WriteCurve from using the file name of filePath, for
// outputs such as the summary that are written after the curves.
func (w *CSVWriter) Reserve(filePath string) {
	base := filepath.Base(filePath)
	w.stems.reserve(strings.TrimSuffix(base, filepath.Ext(base)))
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options, replacing any
// existing file
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCurve writes the corrected curve of one sample to <sample>.csv and
// returns the path written. A sample whose file name, ignoring case, was
// already written by this writer gets a numeric suffix.
func (w *CSVWriter) WriteCurve(res *press.Result) (string, error) {
	name := w.stems.claim(fileStem(res.Sample), 0) + ".csv"
	sw, err := w.CreateStreamWriter(name, curveHeaders)
	if err != nil {
		return "", err
	}

	for i := range res.Curve.Force {
		record := []string{
			formatFloat(res.Curve.Displacement[i]),
			formatFloat(res.Curve.Force[i]),
			formatFloat(res.Work[i]),
			formatFloat(res.Energy.Specific[i]),
		}
		if err := sw.WriteRecord(record); err != nil {
			sw.Close()
			return "", fmt.Errorf("failed to write curve row %d: %w", i, err)
		}
	}
	if err := sw.Close(); err != nil {
		return "", err
	}
	return w.resolvePath(name), nil
}

// WriteSummary writes one row per processed sample to name.
func (w *CSVWriter) WriteSummary(name string, results []*press.Result) error {
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.Sample,
			formatFloat(r.Mass),
			formatFloat(r.Energy.Total),
			formatFixed(r.Metrics.PeakPressure, 4),
			formatFixed(r.Metrics.CompressionRatio, 4),
		})
	}
	return w.WriteCSV(name, WriteOptions{
		Headers:   summaryHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

// StreamWriter provides streaming CSV writing for long curves
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}
