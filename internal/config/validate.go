package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStaging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	roots := map[string]string{
		"paths.upload_dir":  c.Paths.UploadDir,
		"paths.extract_dir": c.Paths.ExtractDir,
		"paths.output_dir":  c.Paths.OutputDir,
		"paths.log_dir":     c.Paths.LogDir,
	}
	for key, value := range roots {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if filepath.Clean(c.Paths.ExtractDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.extract_dir and paths.output_dir must differ")
	}
	if filepath.Clean(c.Paths.UploadDir) == filepath.Clean(c.Paths.ExtractDir) {
		return errors.New("paths.upload_dir and paths.extract_dir must differ")
	}
	return nil
}

func (c *Config) validateStaging() error {
	if c.Staging.RetentionHours < 0 {
		return errors.New("staging.retention_hours must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
