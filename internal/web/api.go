package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/api"
	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
	"github.com/mcpdeliver/pipeliner/internal/models"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

type apiService struct {
	server *server
	log    *zap.Logger
}

func setupApiService(server *server, r *gin.Engine) {
	s := apiService{server, server.logger.Named("api")}

	r.POST("/api/runs", s.dispatchRun)
	r.GET("/api/runs", s.listRuns)
	r.GET("/api/runs/:id", s.getRun)
}

func (s apiService) dispatchRun(c *gin.Context) {
	onError := func(code int, err error) {
		s.log.Warn("Failed to dispatch run", zap.Error(err))
		c.JSON(code, &api.DispatchRunResponse{
			Status: api.Status{Ok: false, Error: err.Error()},
		})
	}

	req := api.DispatchRunRequest{}
	if err := c.BindJSON(&req); err != nil {
		onError(http.StatusBadRequest, err)
		return
	}

	if !s.checkToken(req.Token) {
		s.log.Warn("Unknown token", lf.Token(req.Token))
		onError(http.StatusUnauthorized, fmt.Errorf("invalid or expired token"))
		return
	}

	if req.Commit == "" {
		onError(http.StatusBadRequest, fmt.Errorf("commit is required"))
		return
	}

	kind := trigger.KindPush
	if req.Environment != "" {
		kind = trigger.KindManual
	}

	run, err := s.server.runner.Dispatch(trigger.Event{
		Kind:         kind,
		Environment:  req.Environment,
		Commit:       req.Commit,
		DeliveryID:   req.DeliveryID,
		ChangedPaths: req.ChangedPaths,
	})
	if errors.Is(err, trigger.ErrIrrelevantPush) {
		// Nothing to do for this push; not an error.
		c.JSON(http.StatusOK, &api.DispatchRunResponse{
			Status: api.Status{Ok: true},
		})
		return
	}
	if err != nil {
		// Classification problems are the caller's configuration errors.
		onError(http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusOK, &api.DispatchRunResponse{
		Status: api.Status{Ok: true},
		Run:    makeRunInfo(run, nil),
	})
}

func (s apiService) listRuns(c *gin.Context) {
	if !s.authorize(c) {
		return
	}

	runs, err := s.server.db.ListRuns(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, &api.RunsResponse{
			Status: api.Status{Ok: false, Error: err.Error()},
		})
		return
	}

	infos := make([]*api.RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, makeRunInfo(run, nil))
	}
	c.JSON(http.StatusOK, &api.RunsResponse{
		Status: api.Status{Ok: true},
		Runs:   infos,
	})
}

func (s apiService) getRun(c *gin.Context) {
	if !s.authorize(c) {
		return
	}

	id := c.Param("id")

	run, err := s.server.db.FindRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, &api.RunResponse{
			Status: api.Status{Ok: false, Error: err.Error()},
		})
		return
	}

	stages, err := s.server.db.ListStageResults(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, &api.RunResponse{
			Status: api.Status{Ok: false, Error: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, &api.RunResponse{
		Status: api.Status{Ok: true},
		Run:    makeRunInfo(run, stages),
	})
}

// authorize guards the read endpoints, which carry the token as a
// query parameter.
func (s apiService) authorize(c *gin.Context) bool {
	token := c.Query("token")
	if s.checkToken(token) {
		return true
	}

	s.log.Warn("Unknown token", lf.Token(token))
	c.JSON(http.StatusUnauthorized, &api.Status{
		Ok:    false,
		Error: "invalid or expired token",
	})
	return false
}

func (s apiService) checkToken(token string) bool {
	for _, known := range s.server.config.Server.Tokens {
		if known == token {
			return true
		}
	}
	return false
}

func makeRunInfo(run *models.Run, stages []*models.StageResult) *api.RunInfo {
	info := &api.RunInfo{
		ID:          run.ID,
		Trigger:     run.Trigger,
		Environment: run.Environment,
		Commit:      run.Commit,
		ImageTag:    run.ImageTag,
		Status:      run.Status,
		FailedStage: run.FailedStage,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}
	for _, stage := range stages {
		info.Stages = append(info.Stages, api.StageInfo{
			Name:   stage.Name,
			Status: stage.Status,
			Error:  stage.Error,
		})
	}
	return info
}
