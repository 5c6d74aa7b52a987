package models

import (
	"time"
)

const (
	RunStatusPending   = "pending"
	RunStatusTesting   = "testing"
	RunStatusBuilding  = "building"
	RunStatusDeploying = "deploying"
	RunStatusVerifying = "verifying"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

type RunStatus = string

type Run struct {
	ID string `gorm:"primaryKey"`

	Trigger     string `gorm:"index"`
	Environment string `gorm:"index"`
	Commit      string `gorm:"index"`
	ImageTag    string

	Status      RunStatus
	FailedStage string

	StartedAt  time.Time
	FinishedAt *time.Time
}
