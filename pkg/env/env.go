// Package env reads raw process environment values. Structured configuration
// goes through envconfig; this covers the few knobs consulted before the
// config layer is up, like the logger output format.
package env

import "os"

// Get returns the environment value for key, or fallback when the variable is
// unset or empty.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
