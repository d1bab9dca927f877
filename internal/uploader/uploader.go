package uploader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"labelsheet/internal/annotate"
	"labelsheet/internal/config"
	"labelsheet/internal/journal"
	"labelsheet/internal/logging"
	"labelsheet/internal/metadata"
	"labelsheet/internal/namepath"
	"labelsheet/internal/platform"
	"labelsheet/internal/services"
	"labelsheet/internal/table"
)

// API is the slice of the platform client the orchestrator calls. Tests
// substitute a fake; production wiring passes *platform.Client.
type API interface {
	CheckGlobalKeys(ctx context.Context, keys []string) (platform.GlobalKeyReport, error)
	ClearGlobalKeys(ctx context.Context, keys []string) error
	DataRowIDsForGlobalKeys(ctx context.Context, keys []string) ([]string, error)
	CreateDataRows(ctx context.Context, datasetID string, rows []platform.DataRow) (platform.Job, error)
	CreateBatch(ctx context.Context, projectID, name string, dataRowIDs []string, priority int) (platform.Batch, error)
	ImportAnnotations(ctx context.Context, projectID, importName, method string, records []annotate.Annotation) (platform.Job, error)
	AddPredictions(ctx context.Context, modelRunID string, records []annotate.Annotation) (platform.Job, error)
	UpsertModelRunDataRows(ctx context.Context, modelRunID string, dataRowIDs []string) (platform.Job, error)
	UpsertGroundTruth(ctx context.Context, modelRunID, projectID string) (platform.Job, error)
	WaitForJob(ctx context.Context, jobID string) (platform.JobStatus, error)
	Ontology(ctx context.Context, projectID string) (map[string]any, error)
	MetadataFields(ctx context.Context) ([]metadata.Field, error)
	CreateMetadataField(ctx context.Context, name, kind string, enumOptions []string) (metadata.Field, error)
}

// Uploader drives a full table upload: metadata sync, global-key vetting,
// data row creation, project batching, annotation and prediction imports.
// Every remote batch is journaled before submission so interrupted runs can
// be inspected and resumed.
type Uploader struct {
	api      API
	journal  *journal.Store
	cfg      *config.Config
	codec    namepath.Codec
	logger   *slog.Logger
	encoders map[string]*annotate.Encoder
}

// New builds an Uploader. A nil logger disables logging.
func New(api API, store *journal.Store, cfg *config.Config, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Uploader{
		api:      api,
		journal:  store,
		cfg:      cfg,
		codec:    namepath.New(cfg.Annotate.Divider),
		logger:   logging.NewComponentLogger(logger, "uploader"),
		encoders: make(map[string]*annotate.Encoder),
	}
}

// Result summarizes one upload run.
type Result struct {
	Rows              int
	DataRowsCreated   int
	DataRowsExisting  int
	ProjectBatches    int
	AnnotationRecords int
	PredictionRecords int
	ModelRunRows      int
}

// Run uploads one table end to end. runName prefixes every batch and import
// name; when empty a fresh random name is generated. A failed batch halts the
// run immediately; completed batches stay completed in the journal.
func (u *Uploader) Run(ctx context.Context, adapter table.Adapter, runName string) (*Result, error) {
	if runName == "" {
		runName = uuid.NewString()
	}

	columns, err := adapter.Columns()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "columns", "read table columns", err)
	}
	indexes, err := table.ParseColumns(columns, u.codec)
	if err != nil {
		return nil, err
	}

	fields, err := metadata.Sync(ctx, u.api, adapter, indexes.Metadata, u.logger)
	if err != nil {
		return nil, err
	}

	plan, err := u.buildPlan(adapter, fields)
	if err != nil {
		return nil, err
	}
	result := &Result{Rows: len(plan.Rows)}
	u.logger.Info("upload plan ready",
		logging.Args(
			logging.String("run", runName),
			logging.Int(logging.FieldCount, len(plan.Rows)),
		)...)

	if err := u.vetGlobalKeys(services.WithStage(ctx, "vet"), plan, result); err != nil {
		return nil, err
	}
	if err := u.createDataRows(services.WithStage(ctx, "data-rows"), plan, runName, result); err != nil {
		return nil, err
	}
	if err := u.resolveDataRowIDs(services.WithStage(ctx, "data-rows"), plan); err != nil {
		return nil, err
	}
	if err := u.batchToProjects(services.WithStage(ctx, "project-rows"), plan, runName, result); err != nil {
		return nil, err
	}
	if err := u.importAnnotations(services.WithStage(ctx, "annotations"), plan, runName, result); err != nil {
		return nil, err
	}
	if err := u.upsertModelRunRows(services.WithStage(ctx, "model-run-rows"), plan, runName, result); err != nil {
		return nil, err
	}
	if err := u.importPredictions(services.WithStage(ctx, "predictions"), plan, runName, result); err != nil {
		return nil, err
	}

	u.logger.Info("upload complete",
		logging.Args(
			logging.String("run", runName),
			logging.Int("data_rows_created", result.DataRowsCreated),
			logging.Int("project_batches", result.ProjectBatches),
			logging.Int("annotations", result.AnnotationRecords),
			logging.Int("predictions", result.PredictionRecords),
		)...)
	return result, nil
}

// GroundTruth promotes a project's submitted labels into a model run.
func (u *Uploader) GroundTruth(ctx context.Context, modelRunID, projectID string) error {
	ctx = services.WithStage(ctx, "ground-truth")
	name := fmt.Sprintf("ground-truth-%s", projectID)
	return u.runBatch(ctx, journal.KindGroundTruth, modelRunID, name, 1, 0, func(ctx context.Context) error {
		job, err := u.api.UpsertGroundTruth(ctx, modelRunID, projectID)
		if err != nil {
			return err
		}
		status, err := u.api.WaitForJob(ctx, job.ID)
		if err != nil {
			return err
		}
		if status.State == platform.JobStateFailed {
			return jobFailure("ground-truth", status)
		}
		return nil
	})
}

// runBatch journals one remote batch around fn: pending on insert, running
// before the call, completed on success, failed or review on error depending
// on the error kind.
func (u *Uploader) runBatch(ctx context.Context, kind journal.Kind, targetID, name string, sequence, itemCount int, fn func(context.Context) error) error {
	batch, err := u.journal.NewBatch(ctx, kind, targetID, name, sequence, itemCount)
	if err != nil {
		return fmt.Errorf("journal batch: %w", err)
	}
	ctx = services.WithBatchID(ctx, batch.ID)
	if err := u.journal.SetStatus(ctx, batch.ID, journal.StatusRunning, ""); err != nil {
		return fmt.Errorf("journal batch %d: %w", batch.ID, err)
	}

	if err := fn(ctx); err != nil {
		if statusErr := u.journal.SetStatus(ctx, batch.ID, services.FailureStatus(err), err.Error()); statusErr != nil {
			u.logger.Error("journal status update failed",
				logging.Args(logging.Int64(logging.FieldBatchID, batch.ID), logging.Error(statusErr))...)
		}
		return err
	}
	return u.journal.SetStatus(ctx, batch.ID, journal.StatusCompleted, "")
}

// jobFailure converts a terminally failed platform job into a transient
// error carrying the first remote error message.
func jobFailure(stage string, status platform.JobStatus) error {
	message := "job failed without error detail"
	if len(status.Errors) > 0 {
		message = status.Errors[0].Message
	}
	return services.Wrap(services.ErrTransient, stage, status.ID, message, nil)
}

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
