package config

import "os"

// ExpandEnv expands ${VAR} / $VAR references in a single configuration
// value using the standard library's shell-style expansion. Used for
// tool-server argument templates (e.g. "--url=${NETBOX_URL}") where the
// referenced variable is itself sourced from Config, not inherited from the
// gateway's ambient environment.
//
// Missing variables expand to the empty string; Validate catches required
// fields that end up empty.
func ExpandEnv(value string, lookup map[string]string) string {
	return os.Expand(value, func(key string) string {
		return lookup[key]
	})
}
