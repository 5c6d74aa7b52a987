package registry

import (
	"context"
	goerrors "errors"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
)

var ErrTagNotFound = goerrors.New("tag not found")

// Builder produces an image from the repository's build recipe for a
// given commit. The build cache is an optimization only: the same
// commit always yields the same content.
type Builder interface {
	Build(ctx context.Context, commit string) (*Image, error)
}

// Registry is the remote tag store.
type Registry interface {
	// Push uploads the image under ref, overwriting the tag if present.
	Push(ctx context.Context, image *Image, ref Ref) error
	// Lookup returns the image id the tag currently points at, or
	// ErrTagNotFound.
	Lookup(ctx context.Context, ref Ref) (string, error)
}

type PublishResult struct {
	CommitRef Ref
	LatestRef Ref
	ImageID   string
	// Reused is set when the commit tag was already published and the
	// upload was skipped.
	Reused bool
}

// Publisher writes the two tags of a successful build: the immutable
// commit tag and the floating "latest" pointer.
type Publisher struct {
	registry   Registry
	host       string
	repository string
	logger     *zap.Logger
}

func NewPublisher(logger *zap.Logger, registry Registry, host, repository string) *Publisher {
	return &Publisher{
		registry:   registry,
		host:       host,
		repository: repository,
		logger:     logger.Named("publisher"),
	}
}

func (p *Publisher) CommitRef(commit string) Ref {
	return Ref{Registry: p.host, Repository: p.repository, Tag: commit}
}

// Publish pushes the commit tag and then moves "latest" onto it.
//
// The commit tag is never reassigned: if it already exists, the push
// is skipped and the published content stays as is. "latest" is
// overwritten on every call, last writer wins.
func (p *Publisher) Publish(ctx context.Context, image *Image, commit string) (*PublishResult, error) {
	commitRef := p.CommitRef(commit)
	latestRef := commitRef.WithTag(TagLatest)

	log := p.logger.With(lf.Commit(commit), lf.ImageRef(commitRef.String()))

	result := &PublishResult{
		CommitRef: commitRef,
		LatestRef: latestRef,
		ImageID:   image.ID,
	}

	existing, err := p.registry.Lookup(ctx, commitRef)
	switch {
	case err == nil:
		log.Info("Commit tag is already published, skipping upload",
			zap.String("published_id", existing))
		result.Reused = true
		result.ImageID = existing

	case errors.Is(err, ErrTagNotFound):
		if err := p.registry.Push(ctx, image, commitRef); err != nil {
			return nil, errors.Wrapf(err, "Failed to push %s", commitRef)
		}
		log.Info("Pushed commit tag", zap.String("size", units.HumanSize(float64(image.Size))))

	default:
		return nil, errors.Wrapf(err, "Failed to look up %s", commitRef)
	}

	if err := p.registry.Push(ctx, image, latestRef); err != nil {
		return nil, errors.Wrapf(err, "Failed to push %s", latestRef)
	}
	log.Info("Moved latest tag", lf.ImageRef(latestRef.String()))

	return result, nil
}
