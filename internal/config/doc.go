// Package config provides configuration management for the retail pipeline.
//
// # Configuration Sources
//
// Configuration is built in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. A YAML file (RETAIL_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables with the RETAIL_ prefix
//
// # Environment Variables
//
// Sections map to nested prefixes:
//
//	RETAIL_SOURCE_LOCATION=/data/Online Retail.xlsx
//	RETAIL_CLEANING_MAX_UNIT_PRICE=10000
//	RETAIL_CLEANING_DROP_INVALID_TIMESTAMPS=true
//	RETAIL_AGGREGATION_TOP_PRODUCTS=50
//	RETAIL_STORAGE_BACKEND=sqlite
//	RETAIL_LOGGING_LEVEL=debug
//
// # Validation
//
// The loaded value is validated with struct tags plus cross-field rules
// (price bounds ordered, sqlite path present for the sqlite backend).
//
// # Paths
//
// Paths resolves the bronze, silver and gold directories under the storage
// root:
//
//	paths, _ := cfg.Paths()
//	dir, _ := paths.LayerDir("silver")
package config
