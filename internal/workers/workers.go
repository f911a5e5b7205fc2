// Package workers sizes the encode worker pool.
package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker count for the encode pool: one per CPU,
// capped by limit (0 means no cap). GOMAXPROCS respects container CPU
// limits. The PIXMILL_WORKERS environment variable overrides the
// computed value.
func Count(limit int) int {
	if override := os.Getenv("PIXMILL_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			if limit > 0 && n > limit {
				return limit
			}
			return n
		}
	}

	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
