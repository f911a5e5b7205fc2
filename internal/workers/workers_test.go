package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	original := os.Getenv("PIXMILL_WORKERS")
	defer func() {
		if original != "" {
			os.Setenv("PIXMILL_WORKERS", original)
		} else {
			os.Unsetenv("PIXMILL_WORKERS")
		}
	}()
	os.Unsetenv("PIXMILL_WORKERS")

	cpus := runtime.GOMAXPROCS(0)

	if got := Count(0); got != cpus {
		t.Errorf("Count(0) = %d, want %d", got, cpus)
	}
	if got := Count(1); got != 1 {
		t.Errorf("Count(1) = %d, want 1", got)
	}
	if got := Count(cpus + 100); got != cpus {
		t.Errorf("Count(limit above cpus) = %d, want %d", got, cpus)
	}
}

func TestCountEnvOverride(t *testing.T) {
	original := os.Getenv("PIXMILL_WORKERS")
	defer func() {
		if original != "" {
			os.Setenv("PIXMILL_WORKERS", original)
		} else {
			os.Unsetenv("PIXMILL_WORKERS")
		}
	}()

	os.Setenv("PIXMILL_WORKERS", "3")
	if got := Count(0); got != 3 {
		t.Errorf("Count with override = %d, want 3", got)
	}
	if got := Count(2); got != 2 {
		t.Errorf("Count with override above limit = %d, want 2", got)
	}

	os.Setenv("PIXMILL_WORKERS", "not-a-number")
	if got := Count(0); got < 1 {
		t.Errorf("Count with bad override = %d, want >= 1", got)
	}
}
