package testenv

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/envconf"
)

// Runner executes the service's test suite in a subprocess with the
// synthetic configuration appended to the environment. The suite is a
// single pass/fail unit: any non-zero exit fails the stage, nothing
// is retried.
type Runner struct {
	logger *zap.Logger

	command string
	dir     string
	timeout time.Duration
}

func NewRunner(logger *zap.Logger, command, dir string, timeout time.Duration) *Runner {
	return &Runner{
		logger:  logger.Named("testenv"),
		command: command,
		dir:     dir,
		timeout: timeout,
	}
}

func (r *Runner) RunTests(ctx context.Context, config envconf.Config) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("Running test suite", zap.String("command", r.command))

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), config.Environ()...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Error("Test suite failed", zap.ByteString("output", out))
		return errors.Wrap(err, "Test suite failed")
	}

	r.logger.Info("Test suite passed")
	return nil
}
