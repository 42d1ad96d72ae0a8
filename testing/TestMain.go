// Package testing switches the application into test mode for any test
// binary that imports it, so entry points skip connecting to real services.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("WORKFORCE_TEST_MODE", "1")
		if os.Getenv("CSRF_SECRET") == "" {
			_ = os.Setenv("CSRF_SECRET", "test-csrf-secret")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
