// Package config provides configuration management for the press test
// processor. It loads settings from multiple sources, validates them, and
// hands typed sections to the rest of the application.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PDP_<SECTION>_<FIELD>:
//
//	PDP_LOGGING_LEVEL=debug
//	PDP_CALIBRATION_DEFAULT_A=0.0357
//	PDP_PRESS_PISTON_DIAMETER_MM=86
//	PDP_PROCESSING_WORKERS=4
//	PDP_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/press.prom
//
// # Configuration File
//
// When no path is given, Load looks for processor.yaml in the working
// directory and in configs/:
//
//	calibration:
//	  default_a: 0.0357
//	  default_b: 0.4701
//	press:
//	  legacy_rounding: false
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
