package environments

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

// Environment holds the fixed, non-secret settings of a single
// deployment target. Secrets (database url, upstream model service)
// are resolved separately by environment name.
type Environment struct {
	Name        string `yaml:"environment"`
	Host        string `yaml:"host"`
	Port        uint16 `yaml:"port"`
	ApiPrefix   string `yaml:"apiPrefix"`
	BaseURL     string `yaml:"baseURL"`
	AgentURL    string `yaml:"agentURL"`
	OllamaModel string `yaml:"ollamaModel"`
}

type Environments []Environment

func Parse(body []byte) (Environments, error) {
	envs := Environments{}
	if err := yaml.Unmarshal(body, &envs); err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal environments")
	}

	if err := envs.validate(); err != nil {
		return nil, err
	}

	return envs, nil
}

func Load(path string) (Environments, error) {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read environments file")
	}
	return Parse(body)
}

func (e Environments) validate() error {
	seen := map[string]bool{}
	for _, env := range e {
		if !trigger.IsKnownEnvironment(env.Name) {
			return errors.Errorf("Unknown environment %q", env.Name)
		}
		if seen[env.Name] {
			return errors.Errorf("Duplicate environment %q", env.Name)
		}
		seen[env.Name] = true

		if env.BaseURL == "" {
			return errors.Errorf("Environment %q has no baseURL", env.Name)
		}
		if env.Port == 0 {
			return errors.Errorf("Environment %q has no port", env.Name)
		}
	}
	return nil
}

func (e Environments) Find(name string) (*Environment, error) {
	for i := range e {
		if e[i].Name == name {
			return &e[i], nil
		}
	}
	return nil, fmt.Errorf("environment %q is not declared", name)
}

func (env *Environment) Addr() string {
	return fmt.Sprintf("%s:%d", env.Host, env.Port)
}
