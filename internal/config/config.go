package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	JournalDir string `toml:"journal_dir"`
	LogDir     string `toml:"log_dir"`
	CacheDir   string `toml:"cache_dir"`
}

// Platform contains connection settings for the labeling platform API.
type Platform struct {
	APIKey              string `toml:"api_key"`
	Endpoint            string `toml:"endpoint"`
	AppURL              string `toml:"app_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	JobDeadlineSeconds  int    `toml:"job_deadline_seconds"`
}

// Annotate contains settings for annotation encoding and decoding.
type Annotate struct {
	// Divider separates segments in ontology name paths. It must not occur
	// inside any node name.
	Divider string `toml:"divider"`
	// MaskMethod selects how mask inputs are interpreted: "url", "array", or "png".
	MaskMethod string `toml:"mask_method"`
	// Confidence attaches a confidence field to encoded annotations when the
	// input carries one.
	Confidence bool `toml:"confidence"`
}

// Upload contains batching behavior for the upload orchestrator.
type Upload struct {
	DataRowBatchSize  int    `toml:"data_row_batch_size"`
	AnnotationBatch   int    `toml:"annotation_batch_size"`
	ProjectBatchSize  int    `toml:"project_batch_size"`
	ModelRunBatchSize int    `toml:"model_run_batch_size"`
	ImportMethod      string `toml:"import_method"`
	SkipDuplicates    bool   `toml:"skip_duplicates"`
	SuffixDivider     string `toml:"suffix_divider"`
	BatchPriority     int    `toml:"batch_priority"`
	Workers           int    `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for labelsheet.
//
// Configuration sections by subsystem:
//   - Paths: journal, log, and cache directories
//   - Platform: labeling platform endpoint and credentials
//   - Annotate: name-path divider and mask handling
//   - Upload: batch sizes and duplicate-key policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Platform Platform `toml:"platform"`
	Annotate Annotate `toml:"annotate"`
	Upload   Upload   `toml:"upload"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/labelsheet/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("labelsheet.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for journal and log storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JournalDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
