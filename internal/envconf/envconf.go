package envconf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

// Keys of the configuration surface consumed by the deployed service.
const (
	KeyEnvironment   = "ENVIRONMENT"
	KeyOllamaModel   = "OLLAMA_MODEL"
	KeyOllamaBaseURL = "OLLAMA_BASE_URL"
	KeyDebug         = "DEBUG"
	KeyHost          = "HOST"
	KeyPort          = "PORT"
	KeyApiPrefix     = "API_PREFIX"
	KeyDatabaseURL   = "DATABASE_URL"
)

// SecretKeys are resolved through a SecretResolver, scoped by
// environment name. Everything else comes from the environments file.
var SecretKeys = []string{
	KeyDatabaseURL,
	KeyOllamaBaseURL,
}

// Config is a resolved key-value mapping. It is materialized fresh for
// each run, immediately before use, and never persisted beyond it.
type Config map[string]string

// Materialize merges the fixed settings of env with environment-scoped
// secrets. A missing secret is a fatal configuration error, reported
// before any runtime is touched.
func Materialize(env *environments.Environment, resolver SecretResolver) (Config, error) {
	config := Config{
		KeyEnvironment: env.Name,
		KeyOllamaModel: env.OllamaModel,
		KeyDebug:       strconv.FormatBool(env.Name == trigger.EnvDevelopment),
		KeyHost:        env.Host,
		KeyPort:        strconv.Itoa(int(env.Port)),
		KeyApiPrefix:   env.ApiPrefix,
	}

	for _, key := range SecretKeys {
		value, err := resolver.ResolveSecret(env.Name, key)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to resolve secret %s for environment %s", key, env.Name)
		}
		config[key] = value
	}

	return config, nil
}

// TestDefaults is the synthetic configuration used by the test stage.
// Deterministic literals only, no real secrets.
func TestDefaults() Config {
	return Config{
		KeyEnvironment:   "test",
		KeyOllamaModel:   "mistral",
		KeyOllamaBaseURL: "http://localhost:11434",
		KeyDebug:         "true",
		KeyHost:          "127.0.0.1",
		KeyPort:          "8000",
		KeyApiPrefix:     "/api/v1",
		KeyDatabaseURL:   "sqlite://:memory:",
	}
}

// Environ renders the config as KEY=VALUE pairs in stable order,
// suitable for exec.Cmd.Env.
func (c Config) Environ() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, key := range keys {
		environ = append(environ, fmt.Sprintf("%s=%s", key, c[key]))
	}
	return environ
}

// Render produces dotenv file contents.
func (c Config) Render() string {
	return strings.Join(c.Environ(), "\n") + "\n"
}
