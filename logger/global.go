package logger

import "sync"

var (
	globalMu sync.RWMutex
	global   Logger = NewNull()
)

// SetGlobal installs logger as the package-level default used by a
// Database constructed without an explicit Logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the current package-level default logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}
