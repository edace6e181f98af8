package bootstrap

import (
	"fmt"
	"slices"

	"github.com/go-authgate/authcascade/internal/config"

	"go.uber.org/zap"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	warnUnknownOverrideDrivers(cfg, logger)
	return nil
}

// warnUnknownOverrideDrivers flags AUTH_CAPABILITY_* entries naming drivers
// that AUTH_DRIVERS does not enable. They are kept: the cascade reports them
// as unknown backends at dispatch time.
func warnUnknownOverrideDrivers(cfg *config.Config, logger *zap.Logger) {
	for capability, ids := range cfg.Capabilities {
		for _, id := range ids {
			if !slices.Contains(cfg.Drivers, id) {
				logger.Warn("capability override names a driver that is not enabled",
					zap.String("capability", string(capability)),
					zap.String("driver", id),
					zap.Strings("enabled", cfg.Drivers),
				)
			}
		}
	}
}
