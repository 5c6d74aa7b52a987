package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcpdeliver/pipeliner/internal/models"
	"github.com/mcpdeliver/pipeliner/internal/registry"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

// Run is one execution of the delivery pipeline. It is created when
// the triggering event fires and is mutated only by the executor.
type Run struct {
	ID      string
	Trigger trigger.Descriptor

	// ImageTag is the derived artifact tag, bound to the commit.
	ImageTag string
	// Artifact is set by the build stage and consumed by deploy.
	Artifact *registry.Ref

	Status      models.RunStatus
	FailedStage string

	StartedAt  time.Time
	FinishedAt time.Time

	Stages []StageResult
}

type StageResult struct {
	Name   string
	Status models.StageStatus
	Error  string

	StartedAt  time.Time
	FinishedAt time.Time
}

func NewRun(desc trigger.Descriptor) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Trigger:   desc,
		ImageTag:  desc.Commit,
		Status:    models.RunStatusPending,
		StartedAt: time.Now(),
	}
}

// StageStatus returns the recorded status of a stage, or the empty
// string if it has not been recorded yet.
func (r *Run) StageStatus(name string) models.StageStatus {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return r.Stages[i].Status
		}
	}
	return ""
}
