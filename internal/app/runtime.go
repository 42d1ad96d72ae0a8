package app

import (
	"os"
	"sync"
)

const testModeEnv = "WORKFORCE_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether entry points should skip connecting to Postgres
// and Redis. The environment is read once per process.
func InTestMode() bool {
	return testMode()
}
