package dataprocessing

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// blankColumnIndex is where the blank test file name sits when the sheet
// has no "Blank" header (column J).
const blankColumnIndex = 9

var (
	initialDepthColumns = [3]string{"initial_depth_1", "initial_depth_2", "initial_depth_3"}
	finalDepthColumns   = [3]string{"final_depth_1", "final_depth_2", "final_depth_3"}
)

// SampleRecord is one sample row of the sample information workbook.
type SampleRecord struct {
	Row     int        `validate:"gte=2"`
	File    string     `validate:"required,datafile"`
	Mass    string     // parsed later so that a bad mass fails only its sample
	Initial [3]float64 `validate:"dive,gte=0"`
	Final   [3]float64 `validate:"dive,gte=0"`
}

// Name returns the file name without directory or extension, which is how
// samples are labelled in the results workbook.
func (r SampleRecord) Name() string {
	base := filepath.Base(r.File)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// SampleBook is the parsed sample information workbook.
type SampleBook struct {
	Path    string
	Sheet   string
	Blank   string // empty when no blank test was run
	Records []SampleRecord
}

// ReadSampleBook reads the first sheet of the workbook at path. Columns are
// located by header name, case-insensitively.
func ReadSampleBook(path string) (*SampleBook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open sample workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sample sheet", err).
			WithContext("sheet", sheet)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewParsingError("sample sheet has no data rows", nil).
			WithContext("sheet", sheet)
	}

	columnMap := make(map[string]int)
	for j, header := range rows[0] {
		columnMap[strings.ToLower(strings.TrimSpace(header))] = j
	}

	required := []string{"file", "mass"}
	required = append(required, initialDepthColumns[:]...)
	required = append(required, finalDepthColumns[:]...)
	for _, col := range required {
		if _, ok := columnMap[col]; !ok {
			return nil, apperrors.NewParsingError(fmt.Sprintf("could not find required column: %s", col), nil).
				WithContext("sheet", sheet)
		}
	}

	book := &SampleBook{
		Path:  path,
		Sheet: sheet,
		Blank: blankFileName(rows[1], columnMap),
	}

	v, err := newRecordValidator(recordValidations)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if cell(row, columnMap["file"]) == "" && cell(row, columnMap["mass"]) == "" {
			continue
		}

		rec := SampleRecord{
			Row:  i + 1,
			File: cell(row, columnMap["file"]),
			Mass: cell(row, columnMap["mass"]),
		}
		for k := 0; k < 3; k++ {
			if rec.Initial[k], err = depthCell(row, columnMap, initialDepthColumns[k], i+1); err != nil {
				return nil, err
			}
			if rec.Final[k], err = depthCell(row, columnMap, finalDepthColumns[k], i+1); err != nil {
				return nil, err
			}
		}

		if err := v.validateRecord(rec); err != nil {
			return nil, err
		}
		book.Records = append(book.Records, rec)
	}

	if len(book.Records) == 0 {
		return nil, apperrors.NewParsingError("sample sheet lists no samples", nil).
			WithContext("sheet", sheet)
	}
	return book, nil
}

// blankFileName reads the blank test name from the first data row.
// Spreadsheets exported from pandas write "nan" for an empty cell.
func blankFileName(row []string, columnMap map[string]int) string {
	idx, ok := columnMap["blank"]
	if !ok {
		idx = blankColumnIndex
	}
	name := cell(row, idx)
	switch strings.ToLower(name) {
	case "", "nan", "none":
		return ""
	}
	return name
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func depthCell(row []string, columnMap map[string]int, col string, rowNum int) (float64, error) {
	raw := cell(row, columnMap[col])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewParsingError(fmt.Sprintf("row %d: invalid %s %q", rowNum, col, raw), err).
			WithContext("row", rowNum).
			WithContext("column", col)
	}
	return v, nil
}

type recordValidator struct {
	validate *validator.Validate
}

var recordValidations = map[string]validator.Func{
	"datafile": isDataFileName,
}

func newRecordValidator(custom map[string]validator.Func) (*recordValidator, error) {
	v := validator.New()
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to register %q validation", tag), err).
				WithContext("tag", tag)
		}
	}
	return &recordValidator{validate: v}, nil
}

func (rv *recordValidator) validateRecord(rec SampleRecord) error {
	err := rv.validate.Struct(rec)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewAppValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatValidationError(fe))
	}
	return apperrors.NewAppValidationError(fmt.Sprintf("row %d: %s", rec.Row, strings.Join(msgs, "; "))).
		WithContext("row", rec.Row)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Namespace(), err.Param())
	case "datafile":
		return fmt.Sprintf("%s must be a file name inside the workbook directory", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isDataFileName rejects names that would escape the workbook directory.
func isDataFileName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
