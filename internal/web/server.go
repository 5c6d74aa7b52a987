package web

import (
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/config"
)

type server struct {
	config *config.Config
	logger *zap.Logger

	db     RunStore
	runner *Runner
}

func newServer(
	config *config.Config,
	logger *zap.Logger,
	db RunStore,
	runner *Runner,
) (*server, error) {
	return &server{
		config: config,
		logger: logger,
		db:     db,
		runner: runner,
	}, nil
}

func (s *server) run() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))

	setupApiService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})

	s.logger.Info("Starting server", zap.String("address", s.config.Server.ListenAddress))
	return r.Run(s.config.Server.ListenAddress)
}
