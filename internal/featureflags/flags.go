package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether a named flag is on. A flag can be switched on
// either with its own env var (FLAG_<NAME>=true) or by listing it in the
// comma-separated FEATURE_FLAGS variable.
func Enabled(name string) bool {
	if truthy(os.Getenv("FLAG_" + strings.ToUpper(name))) {
		return true
	}
	for _, f := range strings.Split(os.Getenv("FEATURE_FLAGS"), ",") {
		if strings.EqualFold(strings.TrimSpace(f), name) {
			return true
		}
	}
	return false
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
