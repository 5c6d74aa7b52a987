package trigger

import (
	goerrors "errors"
	"strings"

	"github.com/pkg/errors"
)

// Kind tells what started a pipeline run.
type Kind = string

const (
	KindPush   Kind = "push"
	KindManual Kind = "manual"
)

type Environment = string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

var KnownEnvironments = []Environment{
	EnvDevelopment,
	EnvStaging,
	EnvProduction,
}

var (
	ErrUnknownEnvironment = goerrors.New("unknown environment")
	ErrMissingEnvironment = goerrors.New("manual dispatch requires an environment")
	ErrUnknownKind        = goerrors.New("unknown trigger kind")
	ErrIrrelevantPush     = goerrors.New("push touches no watched paths")
)

// Event is the raw input that started a run.
type Event struct {
	Kind        Kind
	Environment Environment
	Commit      string

	// DeliveryID is the sender's idempotency key, e.g. the webhook
	// delivery id. Redelivered events carry the same id; empty means
	// the sender has none.
	DeliveryID string

	// ChangedPaths lists the files touched by a push. Empty means
	// unknown, which is treated as relevant.
	ChangedPaths []string
}

// Descriptor is the classified trigger consumed by every stage.
//
// Push events never carry an environment: they run tests only and
// produce no artifact. Manual dispatches target exactly one of the
// known environments.
type Descriptor struct {
	Kind        Kind
	Environment Environment
	Commit      string
}

// RequiresArtifact reports whether build, deploy and verify should run.
func (d Descriptor) RequiresArtifact() bool {
	return d.Kind == KindManual
}

// RelevantChange reports whether any of the changed paths belongs to
// the watched source locations of the push filter.
func RelevantChange(paths []string) bool {
	if len(paths) == 0 {
		return true
	}
	for _, path := range paths {
		if isSourcePath(path) {
			return true
		}
	}
	return false
}

func isSourcePath(path string) bool {
	if strings.HasSuffix(path, ".py") {
		return true
	}
	switch path {
	case "requirements.txt", "Dockerfile":
		return true
	}
	return false
}

func IsKnownEnvironment(env Environment) bool {
	for _, known := range KnownEnvironments {
		if env == known {
			return true
		}
	}
	return false
}

// Classify validates the raw event before any stage runs. An
// unrecognized environment is a configuration error here, not a
// failure halfway through the pipeline.
func Classify(event Event) (*Descriptor, error) {
	switch event.Kind {
	case KindPush:
		if !RelevantChange(event.ChangedPaths) {
			return nil, ErrIrrelevantPush
		}
		return &Descriptor{
			Kind:   KindPush,
			Commit: event.Commit,
		}, nil

	case KindManual:
		if event.Environment == "" {
			return nil, ErrMissingEnvironment
		}
		if !IsKnownEnvironment(event.Environment) {
			return nil, errors.Wrapf(ErrUnknownEnvironment, "%q", event.Environment)
		}
		return &Descriptor{
			Kind:        KindManual,
			Environment: event.Environment,
			Commit:      event.Commit,
		}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", event.Kind)
	}
}
