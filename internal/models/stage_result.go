package models

import (
	"time"
)

const (
	StageStatusSucceeded = "succeeded"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

type StageStatus = string

type StageResult struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"index"`

	Name   string
	Status StageStatus
	Error  string

	StartedAt  time.Time
	FinishedAt time.Time
}
