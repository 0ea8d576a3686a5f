package relorm

import (
	"context"
	"fmt"
	"sync"

	"github.com/relorm/relorm/driver"
)

// driverRegistry holds every driver.Open function registered under a short
// name ("sqlite", "postgres", ...), so a config file can select a dialect
// by name without the core importing any concrete driver package. Grounded
// on the teacher's registry package.
var (
	driversMu sync.RWMutex
	drivers   = make(map[string]driver.Open)
)

// RegisterDriver registers a driver.Open function under name. Driver
// packages call this from an init func; registering the same name twice
// panics, matching the teacher's fail-fast stance on duplicate
// registration.
func RegisterDriver(name string, open driver.Open) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("relorm: driver %q already registered", name))
	}
	drivers[name] = open
}

// OpenDriver looks up a registered driver by name and opens a connection
// with it.
func OpenDriver(ctx context.Context, name string, cfg driver.Config) (driver.Conn, error) {
	driversMu.RLock()
	open, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("relorm: driver %q not registered (forgot a blank import?)", name)
	}
	return open(ctx, cfg)
}
