package debug

import (
	"fmt"
	"os"
	"strings"
)

// Enabled reports whether verbose diagnostics were requested via the
// CM_DEBUG or DEBUG environment variables.
func Enabled() bool {
	for _, key := range []string{"CM_DEBUG", "DEBUG"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		switch v {
		case "", "0", "false", "off", "no":
			continue
		default:
			return true
		}
	}
	return false
}

// Logf writes a diagnostic line to stderr when debug mode is on.
// Best-effort listing paths use this instead of failing hard.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
}
