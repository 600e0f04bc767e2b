package config

import "strings"

func (c *Config) normalize() error {
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Processing.BaseURL = strings.TrimRight(strings.TrimSpace(c.Processing.BaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Processing.UploadMaxMB <= 0 {
		c.Processing.UploadMaxMB = defaultUploadMaxMB
	}

	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}
