package api

import "time"

type Status struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type StageInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type RunInfo struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Environment string     `json:"environment,omitempty"`
	Commit      string     `json:"commit"`
	ImageTag    string     `json:"image_tag,omitempty"`
	Status      string     `json:"status"`
	FailedStage string     `json:"failed_stage,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	Stages []StageInfo `json:"stages,omitempty"`
}

type DispatchRunRequest struct {
	Token       string `json:"token" form:"token"`
	Environment string `json:"environment,omitempty" form:"environment"`
	Commit      string `json:"commit" form:"commit"`
	// DeliveryID is the sender's idempotency key (webhook delivery
	// id). Requests carrying the same id register a single run.
	DeliveryID string `json:"delivery_id,omitempty" form:"delivery_id"`
	// ChangedPaths lets push webhooks forward the changed files for
	// path filtering. Empty means unknown and always dispatches.
	ChangedPaths []string `json:"changed_paths,omitempty" form:"changed_paths"`
}

type DispatchRunResponse struct {
	Status

	Run *RunInfo `json:"run,omitempty"`
}

type RunsResponse struct {
	Status

	Runs []*RunInfo `json:"runs,omitempty"`
}

type RunResponse struct {
	Status

	Run *RunInfo `json:"run,omitempty"`
}
