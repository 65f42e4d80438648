package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, 0.0357, cfg.Calibration.DefaultA)
				assert.Equal(t, 0.4701, cfg.Calibration.DefaultB)
				assert.Equal(t, 200, cfg.Calibration.MaxIterations)
				assert.Equal(t, 1e-10, cfg.Calibration.Tolerance)

				assert.Equal(t, 86.0, cfg.Press.PistonDiameterMM)
				assert.Equal(t, 153.0, cfg.Press.DepthReferenceMM)
				assert.Equal(t, 3.6, cfg.Press.EnergyConversion)
				assert.Equal(t, 8, cfg.Press.HeaderLines)
				assert.True(t, cfg.Press.LegacyRounding)

				assert.Equal(t, 1, cfg.Processing.Workers)
				assert.False(t, cfg.Telemetry.EnableTracing)
				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name: "environment variables override defaults",
			env: map[string]string{
				"PDP_LOGGING_LEVEL":              "debug",
				"PDP_CALIBRATION_DEFAULT_A":      "0.05",
				"PDP_PRESS_LEGACY_ROUNDING":      "false",
				"PDP_PROCESSING_WORKERS":         "4",
				"PDP_TELEMETRY_TRACE_EXPORTER":   "stdout",
				"PDP_PRESS_PISTON_DIAMETER_MM":   "100",
				"PDP_CALIBRATION_MAX_ITERATIONS": "50",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 0.05, cfg.Calibration.DefaultA)
				assert.Equal(t, 0.4701, cfg.Calibration.DefaultB)
				assert.False(t, cfg.Press.LegacyRounding)
				assert.Equal(t, 4, cfg.Processing.Workers)
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
				assert.Equal(t, 100.0, cfg.Press.PistonDiameterMM)
				assert.Equal(t, 50, cfg.Calibration.MaxIterations)
			},
		},
		{
			name: "file values overlay defaults",
			fileContent: `
calibration:
  default_a: 0.04
press:
  header_lines: 10
processing:
  workers: 2
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.04, cfg.Calibration.DefaultA)
				assert.Equal(t, 0.4701, cfg.Calibration.DefaultB)
				assert.Equal(t, 10, cfg.Press.HeaderLines)
				assert.Equal(t, 2, cfg.Processing.Workers)
				assert.True(t, cfg.Press.LegacyRounding)
			},
		},
		{
			name: "environment takes precedence over file",
			env: map[string]string{
				"PDP_PROCESSING_WORKERS": "8",
			},
			fileContent: `
processing:
  workers: 2
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Processing.Workers)
			},
		},
		{
			name: "invalid worker count",
			env: map[string]string{
				"PDP_PROCESSING_WORKERS": "0",
			},
			wantErr: true,
		},
		{
			name: "invalid trace exporter",
			env: map[string]string{
				"PDP_TELEMETRY_TRACE_EXPORTER": "otlp",
			},
			wantErr: true,
		},
		{
			name: "unparseable env value",
			env: map[string]string{
				"PDP_CALIBRATION_TOLERANCE": "tiny",
			},
			wantErr: true,
		},
		{
			name:        "malformed yaml",
			fileContent: "press: [1, 2",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.fileContent != "" {
				path = filepath.Join(t.TempDir(), "processor.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0644))
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "unknown log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: true,
		},
		{
			name:   "unknown format falls back to json",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "json", c.Logging.Format)
			},
		},
		{
			name: "file output gets default path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.FilePath = ""
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "logs/processor.log", c.Logging.FilePath)
			},
		},
		{
			name:    "non-positive tolerance",
			mutate:  func(c *Config) { c.Calibration.Tolerance = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive iterations",
			mutate:  func(c *Config) { c.Calibration.MaxIterations = -1 },
			wantErr: true,
		},
		{
			name:    "zero piston diameter",
			mutate:  func(c *Config) { c.Press.PistonDiameterMM = 0 },
			wantErr: true,
		},
		{
			name:    "zero energy conversion",
			mutate:  func(c *Config) { c.Press.EnergyConversion = 0 },
			wantErr: true,
		},
		{
			name:    "negative header lines",
			mutate:  func(c *Config) { c.Press.HeaderLines = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
