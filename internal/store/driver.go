package store

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverFactory is a function that creates a gorm.Dialector
type DriverFactory func(dsn string) gorm.Dialector

// driverFactories maps driver names to their factory functions
var driverFactories = map[string]DriverFactory{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

// GetDialector returns a GORM dialector for the given driver name and DSN
func GetDialector(driver, dsn string) (gorm.Dialector, error) {
	factory, exists := driverFactories[strings.ToLower(driver)]
	if !exists {
		return nil, fmt.Errorf(
			"unsupported database driver: %s (supported: %s)",
			driver,
			strings.Join(SupportedDrivers(), ", "),
		)
	}
	return factory(dsn), nil
}

// SupportedDrivers returns the registered driver names in sorted order
func SupportedDrivers() []string {
	return slices.Sorted(maps.Keys(driverFactories))
}

// RegisterDriver allows registering custom database drivers
func RegisterDriver(name string, factory DriverFactory) {
	driverFactories[strings.ToLower(name)] = factory
}
