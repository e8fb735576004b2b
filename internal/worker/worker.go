// Package worker runs background jobs pulled from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/exports"
	"github.com/lumen-analytics/backend/internal/metrics"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/queue"
	"github.com/lumen-analytics/backend/pkg/storage"
)

// ExportStore reads exports, streams their events and records the outcome; *exports.Repository implements it.
type ExportStore interface {
	exports.EventSource
	GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, objectKey string, rows int64, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

// Uploader streams an object into storage; *storage.S3 implements it.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// Jobs is the job source; *queue.Queue implements it.
type Jobs interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// ExportProcessor turns export jobs into CSV objects in S3.
type ExportProcessor struct {
	store       ExportStore
	uploader    Uploader
	jobs        Jobs
	pollTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewExportProcessor creates an export processor.
func NewExportProcessor(store ExportStore, uploader Uploader, jobs Jobs, pollTimeout time.Duration, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &ExportProcessor{
		store:       store,
		uploader:    uploader,
		jobs:        jobs,
		pollTimeout: pollTimeout,
		backoff:     queue.RetryBackoff,
		now:         time.Now,
		logger:      logger,
	}
}

func exportID(job *queue.Job) (uuid.UUID, error) {
	if job.Type != queue.JobTypeExport {
		return uuid.Nil, fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload.ExportID, nil
}

// Process executes one export job. Exports that are gone or no longer PENDING are skipped.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	id, err := exportID(job)
	if err != nil {
		return err
	}
	e, err := p.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		p.logger.Info("export no longer exists", zap.String("export_id", id.String()))
		return nil
	}
	if e.Status != models.ExportPending {
		p.logger.Info("export already finished", zap.String("export_id", id.String()), zap.String("status", string(e.Status)))
		return nil
	}

	key := storage.ExportKey(e.WorkspaceID.String(), e.SiteID.String(), e.ID.String())

	// Stream rows through a pipe so the upload never holds the whole file.
	pr, pw := io.Pipe()
	type result struct {
		rows int64
		err  error
	}
	done := make(chan result, 1)
	go func() {
		n, err := exports.WriteCSV(ctx, pw, p.store, e)
		_ = pw.CloseWithError(err)
		done <- result{n, err}
	}()
	upErr := p.uploader.Upload(ctx, key, "text/csv", pr)
	_ = pr.CloseWithError(upErr)
	res := <-done
	if upErr != nil {
		return fmt.Errorf("s3 upload: %w", upErr)
	}
	if res.err != nil {
		return fmt.Errorf("write csv: %w", res.err)
	}

	if err := p.store.MarkCompleted(ctx, e.ID, key, res.rows, p.now()); err != nil {
		return fmt.Errorf("update db: %w", err)
	}
	metrics.ExportJobs.WithLabelValues("completed").Inc()
	p.logger.Info("export completed",
		zap.String("export_id", e.ID.String()),
		zap.String("s3_key", key),
		zap.Int64("rows", res.rows),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error, fail the export once the job is dead-lettered.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.handleFailure(ctx, job, err)
		}
	}
}

func (p *ExportProcessor) handleFailure(ctx context.Context, job *queue.Job, cause error) {
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(cause))
	dead, err := p.jobs.Retry(ctx, job)
	if err != nil {
		p.logger.Error("retry enqueue failed", zap.Error(err))
		return
	}
	if !dead {
		metrics.ExportJobs.WithLabelValues("retried").Inc()
		p.sleep(ctx)
		return
	}
	metrics.ExportJobs.WithLabelValues("failed").Inc()
	id, err := exportID(job)
	if err != nil {
		return
	}
	if err := p.store.MarkFailed(ctx, id, cause.Error(), p.now()); err != nil {
		p.logger.Error("mark export failed", zap.String("export_id", id.String()), zap.Error(err))
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
