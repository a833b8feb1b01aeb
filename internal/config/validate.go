package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if c.Import.MaxFileBytes <= 0 {
		return errors.New("import.max_file_bytes must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !strings.Contains(c.Server.Bind, ":") {
		return fmt.Errorf("server.bind %q must be host:port", c.Server.Bind)
	}
	return ensurePositiveMap(map[string]int{
		"server.read_timeout_seconds":  c.Server.ReadTimeoutSeconds,
		"server.write_timeout_seconds": c.Server.WriteTimeoutSeconds,
	})
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxBatchSize <= 0 {
		return errors.New("ingest.max_batch_size must be positive")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Format {
	case "xlsx", "csv":
		return nil
	default:
		return fmt.Errorf("export.format %q must be one of: xlsx, csv", c.Export.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of: debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
