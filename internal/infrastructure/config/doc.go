// Package config handles loading and validating the building data service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading a .env file from the working directory
//   - Overriding with environment variables (BUILDINGDATA_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via
//     environment variables or the .env file, not the YAML file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Import.SourceDir)
package config
