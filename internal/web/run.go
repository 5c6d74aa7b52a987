package web

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/config"
	"github.com/mcpdeliver/pipeliner/internal/database"
	"github.com/mcpdeliver/pipeliner/internal/deploy"
	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/pipeline"
	"github.com/mcpdeliver/pipeliner/internal/registry"
	"github.com/mcpdeliver/pipeliner/internal/testenv"
	"github.com/mcpdeliver/pipeliner/internal/tgbot"
	"github.com/mcpdeliver/pipeliner/internal/verify"
)

func Run(logger *zap.Logger) error {
	conf, err := config.ParseConfig()
	if err != nil {
		return err
	}

	envs, err := environments.Load(conf.Environments.Path)
	if err != nil {
		return errors.Wrap(err, "Failed to load environments")
	}

	db, err := database.OpenDataBase(logger, makeDSN(conf))
	if err != nil {
		return errors.Wrap(err, "Failed to open database")
	}

	notifier, err := tgbot.NewNotifier(conf, logger)
	if err != nil {
		return errors.Wrap(err, "Failed to create telegram notifier")
	}

	runner := NewRunner(logger, db, notifier, makeComponents(logger, conf, envs), conf.Server.MaxConcurrentRuns)

	s, err := newServer(conf, logger, db, runner)
	if err != nil {
		return errors.Wrap(err, "Failed to start server")
	}

	return errors.Wrap(s.run(), "Server failed")
}

func makeComponents(logger *zap.Logger, conf *config.Config, envs environments.Environments) pipeline.Components {
	docker := registry.NewDocker(logger, ".")

	var gate deploy.ApprovalGate = deploy.AutoApprove{}
	if conf.Deploy.LockServiceURL != "" {
		gate = deploy.NewLockServiceGate(
			conf.Deploy.LockServiceURL,
			conf.Deploy.LockPollInterval,
			conf.Deploy.ApprovalTimeout,
		)
	}

	return pipeline.Components{
		Tester:    testenv.NewRunner(logger, conf.Test.Command, ".", conf.Test.Timeout),
		Builder:   docker,
		Publisher: registry.NewPublisher(logger, docker, conf.Registry.Host, conf.Registry.Repository),
		Deployer: deploy.NewDeployer(logger, deploy.Options{
			Gate:             gate,
			Runtime:          deploy.NewAgentController(),
			Resolver:         envconf.StaticResolver(conf.SecretsFor()),
			Environments:     envs,
			AdoptionInterval: conf.Deploy.AdoptionInterval,
			AdoptionTimeout:  conf.Deploy.AdoptionTimeout,
		}),
		Verifier:     verify.NewProber(logger, conf.Verify.StabilizationDelay, conf.Verify.ProbeTimeout),
		Environments: envs,
	}
}

func makeDSN(conf *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		conf.DataBase.Host,
		conf.DataBase.Port,
		conf.DataBase.User,
		conf.DataBase.Pass,
		conf.DataBase.Name,
	)
}
