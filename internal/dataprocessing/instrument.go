package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// DefaultHeaderLines is the preamble length of the press software's text
// export; data starts on line 9.
const DefaultHeaderLines = 8

// Curve holds the three channels of one instrument dump.
type Curve struct {
	Time         []float64
	Force        []float64 // kN
	Displacement []float64 // mm
}

// Len returns the number of data rows.
func (c *Curve) Len() int {
	return len(c.Time)
}

// ParseInstrument reads a tab-delimited instrument dump. The first
// headerLines lines are skipped; every following non-empty line must start
// with time, force and displacement columns. Extra columns are ignored.
func ParseInstrument(r io.Reader, headerLines int) (*Curve, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	curve := &Curve{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("malformed instrument file", err)
		}

		line, _ := reader.FieldPos(0)
		if line <= headerLines || isBlank(record) {
			continue
		}
		if len(record) < 3 {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("line %d: expected 3 columns, got %d", line, len(record)), nil).
				WithContext("line", line)
		}

		var vals [3]float64
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("line %d column %d: invalid number %q", line, i+1, record[i]), err).
					WithContext("line", line)
			}
			vals[i] = v
		}
		curve.Time = append(curve.Time, vals[0])
		curve.Force = append(curve.Force, vals[1])
		curve.Displacement = append(curve.Displacement, vals[2])
	}

	if curve.Len() == 0 {
		return nil, apperrors.NewParsingError("instrument file contains no data rows", nil)
	}
	return curve, nil
}

// ParseInstrumentFile opens path and parses it with ParseInstrument.
func ParseInstrumentFile(path string, headerLines int) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("instrument file " + path)
		}
		return nil, apperrors.NewStorageError("failed to open instrument file", err).
			WithContext("path", path)
	}
	defer f.Close()

	curve, err := ParseInstrument(f, headerLines)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return curve, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
