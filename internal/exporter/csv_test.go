package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, bom), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(bom):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	tests := []struct {
		name    string
		file    string
		options WriteOptions
		want    [][]string
	}{
		{
			name: "headers and records",
			file: "basic.csv",
			options: WriteOptions{
				Headers:   []string{"a", "b"},
				Records:   [][]string{{"1", "2"}, {"3", "4"}},
				BOMPrefix: true,
			},
			want: [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}},
		},
		{
			name: "nested directory is created",
			file: "nested/deeper/out.csv",
			options: WriteOptions{
				Headers:   []string{"x"},
				Records:   [][]string{{"with,comma"}},
				BOMPrefix: true,
			},
			want: [][]string{{"x"}, {"with,comma"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, w.WriteCSV(tt.file, tt.options))
			assert.Equal(t, tt.want, readCSV(t, filepath.Join(dir, tt.file)))
		})
	}
}

func TestCSVWriter_WriteCSVReplacesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	require.NoError(t, w.WriteCSV("log.csv", WriteOptions{
		Headers: []string{"n"}, Records: [][]string{{"1"}, {"2"}, {"3"}}, BOMPrefix: true,
	}))
	require.NoError(t, w.WriteCSV("log.csv", WriteOptions{
		Headers: []string{"m"}, Records: [][]string{{"4"}}, BOMPrefix: true,
	}))

	assert.Equal(t, [][]string{{"m"}, {"4"}}, readCSV(t, filepath.Join(dir, "log.csv")))
}

func TestCSVWriter_WriteCurve(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	path, err := w.WriteCurve(testResult("run/01"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_01.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, curveHeaders, records[0])
	assert.Equal(t, []string{"0.2023688425155601", "10", "1.0118442125778004", "0.002810678368271668"}, records[2])
	assert.Equal(t, "-0.0038070255795258977", records[3][3])
}

func TestCSVWriter_WriteCurve_DuplicateNames(t *testing.T) {
	tests := []struct {
		name     string
		reserved []string
		samples  []string
		want     []string
	}{
		{
			name:    "same sample twice",
			samples: []string{"run", "run"},
			want:    []string{"run.csv", "run_2.csv"},
		},
		{
			name:    "names differing only in case",
			samples: []string{"Run", "run", "RUN"},
			want:    []string{"Run.csv", "run_2.csv", "RUN_3.csv"},
		},
		{
			name:    "names equal after sanitising",
			samples: []string{"a/b", "a:b"},
			want:    []string{"a_b.csv", "a_b_2.csv"},
		},
		{
			name:     "reserved summary file",
			reserved: []string{"summary.csv"},
			samples:  []string{"Summary"},
			want:     []string{"Summary_2.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			w := NewCSVWriter(dir, nil)
			for _, r := range tt.reserved {
				w.Reserve(r)
			}

			for i, sample := range tt.samples {
				path, err := w.WriteCurve(testResult(sample))
				require.NoError(t, err)
				assert.Equal(t, filepath.Join(dir, tt.want[i]), path)
				assert.Len(t, readCSV(t, path), 4)
			}
		})
	}
}

func TestCSVWriter_WriteSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	second := testResult("run02")
	second.Mass = 50
	second.Metrics.CompressionRatio = 0.125

	require.NoError(t, w.WriteSummary("summary.csv", []*press.Result{testResult("run01"), second}))

	records := readCSV(t, filepath.Join(dir, "summary.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, summaryHeaders, records[0])
	assert.Equal(t, []string{"run01", "100", formatFloat(-0.0038055555555555555), "3.4430", "0.4000"}, records[1])
	assert.Equal(t, []string{"run02", "50", formatFloat(-0.0038055555555555555), "3.4430", "0.1250"}, records[2])
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	w := NewCSVWriter("/does/not/matter", nil)
	abs := filepath.Join(t.TempDir(), "abs.csv")
	assert.Equal(t, abs, w.resolvePath(abs))
}
