package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	lockStateGranted = "granted"
	lockStateDenied  = "denied"
	lockStatePending = "pending"
)

type lockResponse struct {
	State string `json:"state"`
}

// LockServiceGate asks an external lock service whether a deploy to
// an environment may proceed, polling while the decision is pending.
// The lock service itself (who approves, how) is not this
// orchestrator's business.
type LockServiceGate struct {
	client  *resty.Client
	baseURL string

	interval time.Duration
	timeout  time.Duration
}

func NewLockServiceGate(baseURL string, interval, timeout time.Duration) *LockServiceGate {
	return &LockServiceGate{
		client:   resty.New().SetTimeout(10 * time.Second),
		baseURL:  baseURL,
		interval: interval,
		timeout:  timeout,
	}
}

func (g *LockServiceGate) AwaitApproval(ctx context.Context, environment string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := backoff.Retry(func() error {
		res := &lockResponse{}
		_, err := g.client.R().
			SetContext(ctx).
			SetResult(res).
			Get(fmt.Sprintf("%s/v1/locks/%s", g.baseURL, environment))
		if err != nil {
			return err
		}

		switch res.State {
		case lockStateGranted:
			return nil
		case lockStateDenied:
			return backoff.Permanent(ErrApprovalDenied)
		case lockStatePending:
			return errors.Errorf("approval for %s is still pending", environment)
		default:
			return backoff.Permanent(errors.Errorf("unexpected lock state %q", res.State))
		}
	}, backoff.WithContext(backoff.NewConstantBackOff(g.interval), ctx))

	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrApprovalDenied) {
		return errors.Wrapf(err, "Approval for %s timed out", environment)
	}
	return err
}
