package config

import (
	"fmt"
	"net/url"
	"strings"

	"revoice/internal/services"
)

var validLogFormats = map[string]struct{}{"console": {}, "json": {}}

var validLogLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

// Validate checks the configuration for values that would prevent the daemon
// from starting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "paths.data_dir must be set", nil)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "paths.log_dir must be set", nil)
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "paths.api_bind must be set", nil)
	}

	base := strings.TrimSpace(c.Processing.BaseURL)
	if base == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "processing.base_url must be set", nil)
	}
	parsed, err := url.Parse(base)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("processing.base_url %q must be an http(s) URL", base), err)
	}

	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format), nil)
	}
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level), nil)
	}
	return nil
}
