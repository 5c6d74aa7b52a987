package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
	"github.com/mcpdeliver/pipeliner/internal/models"
)

// StageFunc is the body of a stage. Any error is the stage's terminal
// failure; the executor never retries.
type StageFunc func(ctx context.Context, run *Run) error

// Stage is a gated unit of pipeline work. It executes only when every
// stage in Needs succeeded and Gate (if any) allows it against the
// run; otherwise it is recorded as skipped, not failed.
type Stage struct {
	Name  string
	Needs []string
	Gate  func(run *Run) bool
	// Enter is the run status reported while the stage is executing.
	Enter models.RunStatus
	Run   StageFunc
}

// Observer is notified as stage and run results become final. The
// daemon uses it to persist history and send notifications.
type Observer interface {
	StageFinished(run *Run, result StageResult)
	RunFinished(run *Run)
}

// Pipeline executes its stages strictly in declared order: stage N+1
// never starts before stage N's terminal status is known, and a
// failure halts everything behind it.
type Pipeline struct {
	logger   *zap.Logger
	stages   []Stage
	observer Observer
}

func NewPipeline(logger *zap.Logger, stages []Stage, observer Observer) *Pipeline {
	return &Pipeline{
		logger:   logger.Named("pipeline"),
		stages:   stages,
		observer: observer,
	}
}

// Execute drives run through the stage graph. The returned error is
// the first stage failure, already attributed to its stage; gating a
// stage off is not an error.
//
// Terminal status: failed on any stage failure; succeeded when the
// final stage of the graph ran and passed; skipped when the run ended
// early with everything remaining gated off (a push run that only
// tests).
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	log := p.logger.With(
		lf.RunID(run.ID),
		lf.Trigger(run.Trigger.Kind),
		lf.Environment(run.Trigger.Environment),
		lf.Commit(run.Trigger.Commit),
	)
	log.Info("Starting run")

	run.StartedAt = time.Now()
	succeeded := map[string]bool{}
	var failure error

	for _, stage := range p.stages {
		result := StageResult{Name: stage.Name}

		if failure != nil || !p.runnable(run, stage, succeeded) {
			result.Status = models.StageStatusSkipped
			p.record(run, result)
			log.Info("Skipped stage", lf.Stage(stage.Name))
			continue
		}

		run.Status = stage.Enter
		log.Info("Entering stage", lf.Stage(stage.Name))

		result.StartedAt = time.Now()
		err := stage.Run(ctx, run)
		result.FinishedAt = time.Now()

		if err != nil {
			result.Status = models.StageStatusFailed
			result.Error = err.Error()
			run.FailedStage = stage.Name
			failure = errors.Wrapf(err, "Stage %s failed", stage.Name)
			log.Error("Stage failed", lf.Stage(stage.Name), zap.Error(err))
		} else {
			result.Status = models.StageStatusSucceeded
			succeeded[stage.Name] = true
			log.Info("Stage succeeded", lf.Stage(stage.Name))
		}
		p.record(run, result)
	}

	run.FinishedAt = time.Now()
	switch {
	case failure != nil:
		run.Status = models.RunStatusFailed
	case len(p.stages) > 0 && succeeded[p.stages[len(p.stages)-1].Name]:
		run.Status = models.RunStatusSucceeded
	default:
		run.Status = models.RunStatusSkipped
	}
	log.Info("Run finished", lf.Status(run.Status))

	if p.observer != nil {
		p.observer.RunFinished(run)
	}
	return failure
}

func (p *Pipeline) runnable(run *Run, stage Stage, succeeded map[string]bool) bool {
	for _, dep := range stage.Needs {
		if !succeeded[dep] {
			return false
		}
	}
	return stage.Gate == nil || stage.Gate(run)
}

func (p *Pipeline) record(run *Run, result StageResult) {
	run.Stages = append(run.Stages, result)
	if p.observer != nil {
		p.observer.StageFinished(run, result)
	}
}
