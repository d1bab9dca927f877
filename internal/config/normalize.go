package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlatform()
	c.normalizeAnnotate()
	c.normalizeUpload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.JournalDir) == "" {
		c.Paths.JournalDir = defaultJournalDir
	}
	if c.Paths.JournalDir, err = expandPath(c.Paths.JournalDir); err != nil {
		return fmt.Errorf("paths.journal_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlatform() {
	if c.Platform.APIKey == "" {
		if value, ok := os.LookupEnv("LABELSHEET_API_KEY"); ok {
			c.Platform.APIKey = value
		}
	}
	c.Platform.Endpoint = strings.TrimRight(strings.TrimSpace(c.Platform.Endpoint), "/")
	if c.Platform.Endpoint == "" {
		c.Platform.Endpoint = defaultEndpoint
	}
	c.Platform.AppURL = strings.TrimRight(strings.TrimSpace(c.Platform.AppURL), "/")
	if c.Platform.AppURL == "" {
		c.Platform.AppURL = defaultAppURL
	}
	if c.Platform.TimeoutSeconds <= 0 {
		c.Platform.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Platform.PollIntervalSeconds <= 0 {
		c.Platform.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Platform.JobDeadlineSeconds <= 0 {
		c.Platform.JobDeadlineSeconds = defaultJobDeadlineSeconds
	}
}

func (c *Config) normalizeAnnotate() {
	if c.Annotate.Divider == "" {
		c.Annotate.Divider = defaultDivider
	}
	c.Annotate.MaskMethod = strings.ToLower(strings.TrimSpace(c.Annotate.MaskMethod))
	if c.Annotate.MaskMethod == "" {
		c.Annotate.MaskMethod = defaultMaskMethod
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.DataRowBatchSize <= 0 {
		c.Upload.DataRowBatchSize = defaultDataRowBatchSize
	}
	if c.Upload.AnnotationBatch <= 0 {
		c.Upload.AnnotationBatch = defaultAnnotationBatch
	}
	if c.Upload.ProjectBatchSize <= 0 {
		c.Upload.ProjectBatchSize = defaultProjectBatchSize
	}
	if c.Upload.ModelRunBatchSize <= 0 {
		c.Upload.ModelRunBatchSize = defaultModelRunBatchSize
	}
	c.Upload.ImportMethod = strings.ToLower(strings.TrimSpace(c.Upload.ImportMethod))
	if c.Upload.ImportMethod == "" {
		c.Upload.ImportMethod = defaultImportMethod
	}
	if c.Upload.SuffixDivider == "" {
		c.Upload.SuffixDivider = defaultSuffixDivider
	}
	if c.Upload.BatchPriority <= 0 {
		c.Upload.BatchPriority = defaultBatchPriority
	}
	if c.Upload.Workers <= 0 {
		c.Upload.Workers = defaultUploadWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
