package deploy

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
	"github.com/mcpdeliver/pipeliner/internal/registry"
)

type Options struct {
	Gate         ApprovalGate
	Runtime      RuntimeController
	Resolver     envconf.SecretResolver
	Environments environments.Environments

	AdoptionInterval time.Duration
	AdoptionTimeout  time.Duration
}

// Deployer materializes the target environment's configuration and
// rolls the published artifact onto its runtime.
type Deployer struct {
	logger *zap.Logger
	opts   Options
}

func NewDeployer(logger *zap.Logger, opts Options) *Deployer {
	if opts.Gate == nil {
		opts.Gate = AutoApprove{}
	}
	return &Deployer{
		logger: logger.Named("deploy"),
		opts:   opts,
	}
}

// Deploy resolves configuration, waits on the environment lock,
// activates ref and blocks until the runtime reports it live.
//
// Configuration problems (undeclared environment, missing secret) are
// caught before the runtime is touched.
func (d *Deployer) Deploy(ctx context.Context, environment string, ref registry.Ref) error {
	log := d.logger.With(lf.Environment(environment), lf.ImageRef(ref.String()))

	env, err := d.opts.Environments.Find(environment)
	if err != nil {
		return errors.Wrap(err, "Failed to select environment")
	}

	config, err := envconf.Materialize(env, d.opts.Resolver)
	if err != nil {
		return errors.Wrap(err, "Failed to materialize environment config")
	}

	log.Info("Waiting for environment approval")
	if err := d.opts.Gate.AwaitApproval(ctx, environment); err != nil {
		return errors.Wrapf(err, "Deploy to %s was not approved", environment)
	}

	log.Info("Activating artifact")
	if err := d.opts.Runtime.Activate(ctx, env, ref, config); err != nil {
		return errors.Wrap(err, "Failed to activate artifact")
	}

	if err := d.awaitAdoption(ctx, env, ref.Tag); err != nil {
		return errors.Wrap(err, "Runtime did not adopt the artifact")
	}

	log.Info("Deployed")
	return nil
}

// awaitAdoption polls the runtime until the requested tag is live.
// This is a liveness wait on a started rollout, not an error retry.
func (d *Deployer) awaitAdoption(ctx context.Context, env *environments.Environment, tag string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.opts.AdoptionInterval
	policy.MaxInterval = d.opts.AdoptionInterval * 4
	policy.MaxElapsedTime = d.opts.AdoptionTimeout

	return backoff.Retry(func() error {
		active, err := d.opts.Runtime.ActiveTag(ctx, env)
		if err != nil {
			return err
		}
		if active != tag {
			return errors.Errorf("runtime still runs %q", active)
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}
