// Package config provides centralized configuration management for the dashboard.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a .env file
//	2. A YAML file: $CRYPTODASH_CONFIG, config.yaml or configs/config.yaml
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CRYPTODASH_<SECTION>_<FIELD>:
//
//	CRYPTODASH_SERVER_PORT=8080
//	CRYPTODASH_DATA_DEFAULT_FILE=cryptodata.csv
//	CRYPTODASH_DATA_REMOTE_URL=https://example.com/prices.csv
//	CRYPTODASH_DATA_REFRESH_CRON="0 6 * * *"
//	CRYPTODASH_PIPELINE_ROLLING_SCOPE=per_symbol
//	CRYPTODASH_LOGGING_LEVEL=debug
package config
