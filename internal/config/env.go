package config

import (
	"os"
	"regexp"
)

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv replaces environment references in raw config text. An unset
// variable with a fallback takes the fallback; without one the reference
// is left as written so validation reports it.
func expandEnv(content []byte) []byte {
	return envRef.ReplaceAllFunc(content, func(ref []byte) []byte {
		m := envRef.FindSubmatchIndex(ref)
		name := string(ref[m[2]:m[3]])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if m[4] >= 0 {
			return ref[m[4]:m[5]]
		}
		return ref
	})
}
