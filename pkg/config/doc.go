// Package config loads the engine configuration from YAML or JSON files and the environment.
//
// A loaded Config implements ports.Config, the read-only surface the composer and the
// validator consult.
package config
