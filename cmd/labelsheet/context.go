package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"labelsheet/internal/config"
	"labelsheet/internal/journal"
	"labelsheet/internal/logging"
	"labelsheet/internal/platform"
	"labelsheet/internal/table"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) platformClient() (*platform.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return platform.NewClient(cfg.Platform, platform.WithLogger(logger))
}

func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return journal.Open(cfg)
}

// openAdapter picks the table backend by file extension. The returned close
// function is a no-op for CSV.
func openAdapter(path, tableName string) (table.Adapter, func() error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		memory, err := table.LoadCSV(path)
		if err != nil {
			return nil, nil, err
		}
		return memory, func() error { return nil }, nil
	case ".db", ".sqlite", ".sqlite3":
		db, err := table.OpenSQLite(path, tableName)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported table file %q (expected .csv or a SQLite database)", path)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
