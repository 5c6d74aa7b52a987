package web

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/mcpdeliver/pipeliner/internal/database"
	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
	"github.com/mcpdeliver/pipeliner/internal/models"
	"github.com/mcpdeliver/pipeliner/internal/pipeline"
	"github.com/mcpdeliver/pipeliner/internal/tgbot"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

// RunStore is the run-history persistence the daemon needs, satisfied
// by database.DataBase.
type RunStore interface {
	CreateRun(run *models.Run) error
	SaveRun(run *models.Run) error
	FinishRun(id string, status models.RunStatus, failedStage string) error
	FindRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]*models.Run, error)
	AddStageResult(result *models.StageResult) error
	ListStageResults(runID string) ([]*models.StageResult, error)
}

// Runner dispatches pipeline runs and executes them in the
// background. Runs are independent of each other; the semaphore only
// bounds how many execute at once. Two concurrent runs targeting the
// same environment race with last-writer-wins semantics, which is why
// production deploys go through the approval gate.
type Runner struct {
	logger     *zap.Logger
	db         RunStore
	notifier   *tgbot.Notifier
	components pipeline.Components
	sem        *semaphore.Weighted
}

func NewRunner(
	logger *zap.Logger,
	db RunStore,
	notifier *tgbot.Notifier,
	components pipeline.Components,
	maxConcurrent int64,
) *Runner {
	return &Runner{
		logger:     logger.Named("runner"),
		db:         db,
		notifier:   notifier,
		components: components,
		sem:        semaphore.NewWeighted(maxConcurrent),
	}
}

// Dispatch classifies the event, registers a pending run and launches
// it. Classification errors (unknown environment) surface to the
// caller before anything executes. A redelivered event (same delivery
// id) hits the key conflict and returns the already registered run
// instead of launching a second execution.
func (r *Runner) Dispatch(event trigger.Event) (*models.Run, error) {
	desc, err := trigger.Classify(event)
	if err != nil {
		return nil, err
	}

	run := pipeline.NewRun(*desc)
	if event.DeliveryID != "" {
		run.ID = event.DeliveryID
	}
	record := toModel(run)
	if err := r.db.CreateRun(record); err != nil {
		if database.IsDuplicateKey(err) {
			r.logger.Info("Run is already registered", lf.RunID(run.ID))
			return r.db.FindRun(run.ID)
		}
		return nil, err
	}

	r.logger.Info("Dispatched run",
		lf.RunID(run.ID),
		lf.Trigger(desc.Kind),
		lf.Environment(desc.Environment),
		lf.Commit(desc.Commit),
	)

	go r.execute(run)
	return record, nil
}

func (r *Runner) execute(run *pipeline.Run) {
	ctx := context.Background()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.logger.Error("Failed to acquire run slot", zap.Error(err))
		return
	}
	defer r.sem.Release(1)

	p := pipeline.NewDelivery(r.logger, r.components, r)
	if err := p.Execute(ctx, run); err != nil {
		r.logger.Error("Run failed", lf.RunID(run.ID), zap.Error(err))
	}
}

// StageFinished implements pipeline.Observer.
func (r *Runner) StageFinished(run *pipeline.Run, result pipeline.StageResult) {
	err := r.db.AddStageResult(&models.StageResult{
		RunID:      run.ID,
		Name:       result.Name,
		Status:     result.Status,
		Error:      result.Error,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	})
	if err != nil {
		r.logger.Error("Failed to persist stage result", lf.RunID(run.ID), zap.Error(err))
	}

	if err := r.db.SaveRun(toModel(run)); err != nil {
		r.logger.Error("Failed to persist run", lf.RunID(run.ID), zap.Error(err))
	}
}

// RunFinished implements pipeline.Observer.
func (r *Runner) RunFinished(run *pipeline.Run) {
	if err := r.db.FinishRun(run.ID, run.Status, run.FailedStage); err != nil {
		r.logger.Error("Failed to finish run", lf.RunID(run.ID), zap.Error(err))
	}
	r.notifier.NotifyRunFinished(toModel(run))
}

func toModel(run *pipeline.Run) *models.Run {
	record := &models.Run{
		ID:          run.ID,
		Trigger:     run.Trigger.Kind,
		Environment: run.Trigger.Environment,
		Commit:      run.Trigger.Commit,
		ImageTag:    run.ImageTag,
		Status:      run.Status,
		FailedStage: run.FailedStage,
		StartedAt:   run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		record.FinishedAt = &finished
	}
	return record
}
