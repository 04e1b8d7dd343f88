// Package config loads and validates the engine configuration from YAML.
//
// Loading applies defaults first, then optional MINOS_* environment variable
// overrides, then validates the final result. Component packages consume
// their own sections; this package only defines structure, defaults, and
// validation.
package config
