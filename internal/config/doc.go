// Package config provides centralized configuration management for the
// dashboard. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration values.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (CARDASH_CONFIG, config.yaml or configs/config.yaml)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CARDASH_<SECTION>_<FIELD>:
//
//	CARDASH_SERVER_PORT=8080
//	CARDASH_DATASET_PATH=/data/export_car_df.csv
//	CARDASH_DATASET_TOP_BRANDS=10
//	CARDASH_LOGGING_LEVEL=debug
//	CARDASH_TELEMETRY_ENABLE_TRACING=true
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//   - The server port and timeouts are usable
//   - The dataset path is set and the window lengths are positive
//   - The recent window does not exceed the baseline window
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Use config.Default() for a configuration that needs no environment or files.
package config
