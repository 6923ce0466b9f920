package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/myfruitshop/myfruitshop/internal/jobs"
	"github.com/myfruitshop/myfruitshop/internal/sales"
)

// Importer runs a CSV import; sales.Service satisfies it.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (sales.ImportResult, error)
}

// SalesImportJob processes TaskSalesImport tasks.
type SalesImportJob struct {
	Importer Importer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSalesImportJob initialises the import handler.
func NewSalesImportJob(importer Importer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SalesImportJob {
	return &SalesImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle executes one import.
func (j *SalesImportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Importer == nil {
		return errors.New("sales import: handler not configured")
	}
	var payload SalesImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("sales import: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskSalesImport)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("filename", payload.Filename), slog.Int("bytes", len(payload.Data)))
	logger.Info("starting sales import")

	res, err := j.Importer.Import(ctx, bytes.NewReader(payload.Data))
	j.Metrics.AddItems(TaskSalesImport, "accepted", len(res.Accepted))
	j.Metrics.AddItems(TaskSalesImport, "skipped", res.Skipped)
	if err != nil {
		logger.Error("sales import failed", slog.Int("accepted", len(res.Accepted)), slog.Any("error", err))
		return fmt.Errorf("sales import: %v: %w", err, asynq.SkipRetry)
	}
	logger.Info("sales import job done", slog.Int("accepted", len(res.Accepted)), slog.Int("skipped", res.Skipped))
	return nil
}

func (j *SalesImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
