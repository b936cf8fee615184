// Package config handles loading and validating Smart Home Core configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The defaults are the deployment contract: a SQLite file named
// smart_home.db in the working directory and the API bound to 0.0.0.0:8000.
// Every other setting is a convenience for operators.
//
// Security Considerations:
//   - Credentials (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Addr())
package config
