package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/models"
	"github.com/mcpdeliver/pipeliner/internal/registry"
)

const (
	StageTest   = "test"
	StageBuild  = "build-and-publish"
	StageDeploy = "deploy"
	StageVerify = "verify"
)

// Tester executes the service's test suite as a single pass/fail unit
// against a synthetic configuration.
type Tester interface {
	RunTests(ctx context.Context, config envconf.Config) error
}

// Publisher writes the commit and latest tags of a built image.
// Satisfied by registry.Publisher.
type Publisher interface {
	Publish(ctx context.Context, image *registry.Image, commit string) (*registry.PublishResult, error)
}

// ArtifactDeployer rolls a published ref onto an environment.
// Satisfied by deploy.Deployer.
type ArtifactDeployer interface {
	Deploy(ctx context.Context, environment string, ref registry.Ref) error
}

// Verifier probes a deployed service. Satisfied by verify.Prober.
type Verifier interface {
	Verify(ctx context.Context, baseURL string) error
}

type Components struct {
	Tester       Tester
	Builder      registry.Builder
	Publisher    Publisher
	Deployer     ArtifactDeployer
	Verifier     Verifier
	Environments environments.Environments
}

// NewDelivery wires the four-stage delivery graph:
//
//	test → build-and-publish → deploy → verify
//
// Build and everything behind it runs only for manual dispatches;
// push runs stop after test.
func NewDelivery(logger *zap.Logger, c Components, observer Observer) *Pipeline {
	stages := []Stage{
		{
			Name:  StageTest,
			Enter: models.RunStatusTesting,
			Run: func(ctx context.Context, run *Run) error {
				return c.Tester.RunTests(ctx, envconf.TestDefaults())
			},
		},
		{
			Name:  StageBuild,
			Needs: []string{StageTest},
			Enter: models.RunStatusBuilding,
			Gate: func(run *Run) bool {
				return run.Trigger.RequiresArtifact()
			},
			Run: func(ctx context.Context, run *Run) error {
				image, err := c.Builder.Build(ctx, run.Trigger.Commit)
				if err != nil {
					return errors.Wrap(err, "Failed to build artifact")
				}
				result, err := c.Publisher.Publish(ctx, image, run.Trigger.Commit)
				if err != nil {
					return errors.Wrap(err, "Failed to publish artifact")
				}
				run.Artifact = &result.CommitRef
				run.ImageTag = result.CommitRef.Tag
				return nil
			},
		},
		{
			Name:  StageDeploy,
			Needs: []string{StageBuild},
			Enter: models.RunStatusDeploying,
			Run: func(ctx context.Context, run *Run) error {
				return c.Deployer.Deploy(ctx, run.Trigger.Environment, *run.Artifact)
			},
		},
		{
			Name:  StageVerify,
			Needs: []string{StageDeploy},
			Enter: models.RunStatusVerifying,
			Run: func(ctx context.Context, run *Run) error {
				env, err := c.Environments.Find(run.Trigger.Environment)
				if err != nil {
					return errors.Wrap(err, "Failed to select environment")
				}
				return c.Verifier.Verify(ctx, env.BaseURL)
			},
		},
	}

	return NewPipeline(logger, stages, observer)
}
