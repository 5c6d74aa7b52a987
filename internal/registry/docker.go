package registry

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
)

// Docker builds and pushes images by shelling out to the docker CLI.
// The build recipe itself (Dockerfile) belongs to the deployed
// service's repository, not to the orchestrator.
type Docker struct {
	logger     *zap.Logger
	contextDir string
}

func NewDocker(logger *zap.Logger, contextDir string) *Docker {
	return &Docker{
		logger:     logger.Named("docker"),
		contextDir: contextDir,
	}
}

func (d *Docker) Build(ctx context.Context, commit string) (*Image, error) {
	log := d.logger.With(lf.Commit(commit))
	log.Info("Building image")

	localTag := fmt.Sprintf("pipeliner-build:%s", commit)
	out, err := d.run(ctx, "build", "--tag", localTag, d.contextDir)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to build image: %s", out)
	}

	out, err = d.run(ctx, "image", "inspect", "--format", "{{.Id}} {{.Size}}", localTag)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to inspect image: %s", out)
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return nil, errors.Errorf("Unexpected inspect output: %q", out)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse image size")
	}

	log.Info("Built image", zap.String("id", fields[0]))
	return &Image{ID: fields[0], Size: size}, nil
}

func (d *Docker) Push(ctx context.Context, image *Image, ref Ref) error {
	if out, err := d.run(ctx, "tag", image.ID, ref.String()); err != nil {
		return errors.Wrapf(err, "Failed to tag image: %s", out)
	}
	if out, err := d.run(ctx, "push", ref.String()); err != nil {
		return errors.Wrapf(err, "Failed to push image: %s", out)
	}
	return nil
}

func (d *Docker) Lookup(ctx context.Context, ref Ref) (string, error) {
	out, err := d.run(ctx, "manifest", "inspect", "--verbose", ref.String())
	if err != nil {
		if strings.Contains(out, "no such manifest") || strings.Contains(out, "manifest unknown") {
			return "", ErrTagNotFound
		}
		return "", errors.Wrapf(err, "Failed to inspect manifest: %s", out)
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, `"digest":`) {
			digest := strings.Trim(strings.TrimPrefix(line, `"digest":`), ` ",`)
			return digest, nil
		}
	}
	return "", errors.Errorf("No digest in manifest of %s", ref)
}

func (d *Docker) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
