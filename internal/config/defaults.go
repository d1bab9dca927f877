package config

const (
	defaultJournalDir          = "~/.local/share/labelsheet/journal"
	defaultLogDir              = "~/.local/share/labelsheet/logs"
	defaultCacheDir            = "~/.cache/labelsheet"
	defaultEndpoint            = "https://api.labelrows.dev/graphql"
	defaultAppURL              = "https://app.labelrows.dev"
	defaultTimeoutSeconds      = 30
	defaultPollIntervalSeconds = 2
	defaultJobDeadlineSeconds  = 600
	defaultDivider             = "///"
	defaultMaskMethod          = "url"
	defaultDataRowBatchSize    = 20000
	defaultAnnotationBatch     = 10000
	defaultProjectBatchSize    = 10000
	defaultModelRunBatchSize   = 1000
	defaultImportMethod        = "import"
	defaultSuffixDivider       = "___"
	defaultBatchPriority       = 5
	defaultUploadWorkers       = 8
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JournalDir: defaultJournalDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
		},
		Platform: Platform{
			Endpoint:            defaultEndpoint,
			AppURL:              defaultAppURL,
			TimeoutSeconds:      defaultTimeoutSeconds,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			JobDeadlineSeconds:  defaultJobDeadlineSeconds,
		},
		Annotate: Annotate{
			Divider:    defaultDivider,
			MaskMethod: defaultMaskMethod,
		},
		Upload: Upload{
			DataRowBatchSize:  defaultDataRowBatchSize,
			AnnotationBatch:   defaultAnnotationBatch,
			ProjectBatchSize:  defaultProjectBatchSize,
			ModelRunBatchSize: defaultModelRunBatchSize,
			ImportMethod:      defaultImportMethod,
			SkipDuplicates:    true,
			SuffixDivider:     defaultSuffixDivider,
			BatchPriority:     defaultBatchPriority,
			Workers:           defaultUploadWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
