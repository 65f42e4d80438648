package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load (PDP_*).
const EnvPrefix = "PDP"

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Calibration CalibrationConfig `yaml:"calibration" envconfig:"CALIBRATION"`
	Press       PressConfig       `yaml:"press" envconfig:"PRESS"`
	Processing  ProcessingConfig  `yaml:"processing" envconfig:"PROCESSING"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// CalibrationConfig controls the blank-test fit and the constants used when
// no blank test is supplied.
type CalibrationConfig struct {
	DefaultA      float64 `yaml:"default_a" envconfig:"DEFAULT_A"`
	DefaultB      float64 `yaml:"default_b" envconfig:"DEFAULT_B"`
	InitialA      float64 `yaml:"initial_a" envconfig:"INITIAL_A"` // 0 = derive from log-log regression
	InitialB      float64 `yaml:"initial_b" envconfig:"INITIAL_B"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE"`
}

// PressConfig describes the press and the instrument output.
type PressConfig struct {
	PistonDiameterMM float64 `yaml:"piston_diameter_mm" envconfig:"PISTON_DIAMETER_MM"`
	DepthReferenceMM float64 `yaml:"depth_reference_mm" envconfig:"DEPTH_REFERENCE_MM"`
	EnergyConversion float64 `yaml:"energy_conversion" envconfig:"ENERGY_CONVERSION"` // J/g per kWh/t
	HeaderLines      int     `yaml:"header_lines" envconfig:"HEADER_LINES"`
	LegacyRounding   bool    `yaml:"legacy_rounding" envconfig:"LEGACY_ROUNDING"`
}

// ProcessingConfig controls per-sample fan-out.
type ProcessingConfig struct {
	Workers int `yaml:"workers" envconfig:"WORKERS"`
}

// TelemetryConfig contains tracing and metrics export settings
type TelemetryConfig struct {
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// PDP_* environment variables, in increasing order of precedence. An empty
// path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/processor.log"
	}

	if c.Calibration.MaxIterations <= 0 {
		return fmt.Errorf("calibration max iterations must be positive")
	}

	if c.Calibration.Tolerance <= 0 {
		return fmt.Errorf("calibration tolerance must be positive")
	}

	if c.Press.PistonDiameterMM <= 0 {
		return fmt.Errorf("piston diameter must be positive: %g", c.Press.PistonDiameterMM)
	}

	if c.Press.EnergyConversion <= 0 {
		return fmt.Errorf("energy conversion factor must be positive: %g", c.Press.EnergyConversion)
	}

	if c.Press.HeaderLines < 0 {
		return fmt.Errorf("header lines cannot be negative: %d", c.Press.HeaderLines)
	}

	if c.Processing.Workers < 1 {
		return fmt.Errorf("workers must be at least 1: %d", c.Processing.Workers)
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"processor.yaml",
		"configs/processor.yaml",
		"../configs/processor.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/processor.log",
		},
		Calibration: CalibrationConfig{
			DefaultA:      0.0357,
			DefaultB:      0.4701,
			MaxIterations: 200,
			Tolerance:     1e-10,
		},
		Press: PressConfig{
			PistonDiameterMM: 86,
			DepthReferenceMM: 153,
			EnergyConversion: 3.6,
			HeaderLines:      8,
			LegacyRounding:   true,
		},
		Processing: ProcessingConfig{
			Workers: 1,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}
