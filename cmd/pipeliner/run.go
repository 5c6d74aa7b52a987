package main

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mcpdeliver/pipeliner/internal/config"
	"github.com/mcpdeliver/pipeliner/internal/deploy"
	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/pipeline"
	"github.com/mcpdeliver/pipeliner/internal/registry"
	"github.com/mcpdeliver/pipeliner/internal/testenv"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
	"github.com/mcpdeliver/pipeliner/internal/verify"
)

func makeRunCommand() *cobra.Command {
	var environment string
	var commit string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run locally",
		Long: "Without --environment the run is classified as a push trigger and only " +
			"executes the test stage. With --environment it is a manual dispatch that " +
			"tests, builds, deploys and verifies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(environment, commit)
		},
	}
	cmd.Flags().StringVar(&environment, "environment", "", "Target environment (development, staging, production)")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit to deliver (defaults to HEAD)")

	return cmd
}

func executeRun(environment, commit string) error {
	conf, err := config.ParseConfig()
	if err != nil {
		return err
	}

	envs, err := environments.Load(conf.Environments.Path)
	if err != nil {
		return errors.Wrap(err, "Failed to load environments")
	}

	if commit == "" {
		commit, err = headCommit()
		if err != nil {
			return errors.Wrap(err, "Failed to resolve HEAD")
		}
	}

	kind := trigger.KindPush
	if environment != "" {
		kind = trigger.KindManual
	}
	desc, err := trigger.Classify(trigger.Event{
		Kind:        kind,
		Environment: environment,
		Commit:      commit,
	})
	if err != nil {
		return err
	}

	delivery := pipeline.NewDelivery(log, makeComponents(conf, envs), nil)
	return delivery.Execute(context.Background(), pipeline.NewRun(*desc))
}

func makeComponents(conf *config.Config, envs environments.Environments) pipeline.Components {
	docker := registry.NewDocker(log, ".")

	var gate deploy.ApprovalGate = deploy.AutoApprove{}
	if conf.Deploy.LockServiceURL != "" {
		gate = deploy.NewLockServiceGate(
			conf.Deploy.LockServiceURL,
			conf.Deploy.LockPollInterval,
			conf.Deploy.ApprovalTimeout,
		)
	}

	return pipeline.Components{
		Tester:    testenv.NewRunner(log, conf.Test.Command, ".", conf.Test.Timeout),
		Builder:   docker,
		Publisher: registry.NewPublisher(log, docker, conf.Registry.Host, conf.Registry.Repository),
		Deployer: deploy.NewDeployer(log, deploy.Options{
			Gate:             gate,
			Runtime:          deploy.NewAgentController(),
			Resolver:         envconf.StaticResolver(conf.SecretsFor()),
			Environments:     envs,
			AdoptionInterval: conf.Deploy.AdoptionInterval,
			AdoptionTimeout:  conf.Deploy.AdoptionTimeout,
		}),
		Verifier:     verify.NewProber(log, conf.Verify.StabilizationDelay, conf.Verify.ProbeTimeout),
		Environments: envs,
	}
}

func headCommit() (string, error) {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
