// Package config handles loading and validating alauto configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Configuration is loaded once at startup and never mutated afterwards.
// Task enable flags decide which task state machines are constructed at all;
// a disabled task is never built and so can never touch the device.
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Network.Service)
package config
