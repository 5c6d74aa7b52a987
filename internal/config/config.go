package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mcpdeliver/pipeliner/pkg/conf"
)

type Config struct {
	Registry struct {
		Host       string
		Repository string
	}

	Environments struct {
		Path string
	}

	Test struct {
		Command string
		Timeout time.Duration
	}

	Deploy struct {
		AdoptionInterval time.Duration
		AdoptionTimeout  time.Duration

		LockServiceURL   string
		LockPollInterval time.Duration
		ApprovalTimeout  time.Duration
	}

	Verify struct {
		StabilizationDelay time.Duration
		ProbeTimeout       time.Duration
	}

	Server struct {
		ListenAddress     string
		Tokens            []string
		MaxConcurrentRuns int64
	}

	DataBase struct {
		Host string
		Port uint16
		User string
		Pass string
		Name string
	}

	Telegram struct {
		BotToken string
		ChatID   int64
	}

	Secrets struct {
		Development map[string]string
		Staging     map[string]string
		Production  map[string]string
	}
}

func ParseConfig() (*Config, error) {
	config := &Config{}
	if err := conf.ParseConfig(config, conf.EnvPrefix("PLR")); err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Test.Timeout == 0 {
		c.Test.Timeout = 15 * time.Minute
	}
	if c.Deploy.AdoptionInterval == 0 {
		c.Deploy.AdoptionInterval = 5 * time.Second
	}
	if c.Deploy.AdoptionTimeout == 0 {
		c.Deploy.AdoptionTimeout = 2 * time.Minute
	}
	if c.Deploy.LockPollInterval == 0 {
		c.Deploy.LockPollInterval = 10 * time.Second
	}
	if c.Deploy.ApprovalTimeout == 0 {
		c.Deploy.ApprovalTimeout = 30 * time.Minute
	}
	if c.Test.Command == "" {
		c.Test.Command = "make test"
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.MaxConcurrentRuns == 0 {
		c.Server.MaxConcurrentRuns = 4
	}
	if c.Verify.StabilizationDelay == 0 {
		c.Verify.StabilizationDelay = 30 * time.Second
	}
	if c.Verify.ProbeTimeout == 0 {
		c.Verify.ProbeTimeout = 10 * time.Second
	}
}

// SecretsFor flattens the per-environment secret maps into the shape
// the resolver expects.
func (c *Config) SecretsFor() map[string]map[string]string {
	return map[string]map[string]string{
		"development": c.Secrets.Development,
		"staging":     c.Secrets.Staging,
		"production":  c.Secrets.Production,
	}
}
