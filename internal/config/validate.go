package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlatform(); err != nil {
		return err
	}
	if err := c.validateAnnotate(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlatform() error {
	if c.Platform.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/labelsheet/config.toml"
		}
		return fmt.Errorf("platform.api_key is required. Set LABELSHEET_API_KEY env var or edit %s (create with 'labelsheet config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Platform.Endpoint, "http://") && !strings.HasPrefix(c.Platform.Endpoint, "https://") {
		return fmt.Errorf("platform.endpoint must be an http(s) URL, got %q", c.Platform.Endpoint)
	}
	return nil
}

func (c *Config) validateAnnotate() error {
	if strings.TrimSpace(c.Annotate.Divider) == "" {
		return errors.New("annotate.divider must not be blank")
	}
	switch c.Annotate.MaskMethod {
	case "url", "array", "png":
	default:
		return fmt.Errorf("annotate.mask_method must be one of url, array, png; got %q", c.Annotate.MaskMethod)
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.ImportMethod {
	case "mal", "import":
	default:
		return fmt.Errorf("upload.import_method must be either mal or import; got %q", c.Upload.ImportMethod)
	}
	if c.Upload.BatchPriority < 1 || c.Upload.BatchPriority > 5 {
		return fmt.Errorf("upload.batch_priority must be between 1 and 5, got %d", c.Upload.BatchPriority)
	}
	if c.Upload.SuffixDivider == c.Annotate.Divider {
		return errors.New("upload.suffix_divider must differ from annotate.divider")
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
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
