package verify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/mcpdeliver/pipeliner/internal/logfield"
)

const (
	livenessPath = "/health"
	smokePath    = "/models"
)

// Prober confirms a deployed service is actually serving. Both probes
// are idempotent reads; each gets exactly one attempt. A failed probe
// is a definitive verdict, flakiness is not tolerated here and no
// rollback is performed.
type Prober struct {
	logger *zap.Logger
	client *resty.Client

	stabilization time.Duration
}

func NewProber(logger *zap.Logger, stabilization, probeTimeout time.Duration) *Prober {
	return &Prober{
		logger:        logger.Named("verify"),
		client:        resty.New().SetTimeout(probeTimeout),
		stabilization: stabilization,
	}
}

// Verify waits out the rollout, then issues the liveness probe and,
// only if it passed, the smoke probe.
func (p *Prober) Verify(ctx context.Context, baseURL string) error {
	log := p.logger.With(zap.String("base_url", baseURL))

	log.Info("Waiting for the rollout to settle",
		zap.Duration("stabilization", p.stabilization))
	if err := p.sleep(ctx); err != nil {
		return err
	}

	if err := p.probe(ctx, baseURL, livenessPath); err != nil {
		return errors.Wrap(err, "Liveness probe failed")
	}
	if err := p.probe(ctx, baseURL, smokePath); err != nil {
		return errors.Wrap(err, "Smoke probe failed")
	}

	log.Info("Service is healthy")
	return nil
}

func (p *Prober) probe(ctx context.Context, baseURL, path string) error {
	log := p.logger.With(lf.Probe(path))
	log.Debug("Issuing probe")

	resp, err := p.client.R().SetContext(ctx).Get(baseURL + path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return errors.Errorf("unexpected status %s", resp.Status())
	}

	log.Debug("Probe succeeded", lf.Status(resp.Status()))
	return nil
}

func (p *Prober) sleep(ctx context.Context) error {
	timer := time.NewTimer(p.stabilization)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
