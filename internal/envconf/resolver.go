package envconf

import (
	goerrors "errors"

	"github.com/pkg/errors"
)

var ErrSecretNotFound = goerrors.New("secret not found")

// SecretResolver looks up an opaque named secret scoped to an
// environment. The orchestrator never interprets secret values.
type SecretResolver interface {
	ResolveSecret(environment, key string) (string, error)
}

// StaticResolver serves secrets from an in-memory map, keyed by
// environment name. Used by local runs and tests; a real deployment
// plugs in whatever secret store backs the platform.
type StaticResolver map[string]map[string]string

func (r StaticResolver) ResolveSecret(environment, key string) (string, error) {
	secrets, ok := r[environment]
	if !ok {
		return "", errors.Wrapf(ErrSecretNotFound, "no secrets for environment %q", environment)
	}
	value, ok := secrets[key]
	if !ok {
		return "", errors.Wrapf(ErrSecretNotFound, "%s/%s", environment, key)
	}
	return value, nil
}
