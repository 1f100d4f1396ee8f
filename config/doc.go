// Package config loads and validates the resilience core's configuration
// from a YAML file and environment variables. Secret-bearing fields accept
// ${VAR} references that are expanded strictly: a referenced variable that
// is missing from the environment fails the load.
package config
