package deploy

import (
	"context"
	goerrors "errors"
)

var ErrApprovalDenied = goerrors.New("approval denied")

// ApprovalGate is the environment-level lock consulted before a
// deploy. Approval is an external capability (an operator, a chat
// command, a platform lock); the orchestrator only waits on it.
// Returning nil grants the deploy; ErrApprovalDenied or a timeout
// error blocks it.
type ApprovalGate interface {
	AwaitApproval(ctx context.Context, environment string) error
}

// GateFunc adapts a plain function to an ApprovalGate.
type GateFunc func(ctx context.Context, environment string) error

func (f GateFunc) AwaitApproval(ctx context.Context, environment string) error {
	return f(ctx, environment)
}

// AutoApprove grants every deploy immediately. Used for development
// and staging, where no external lock is configured.
type AutoApprove struct{}

func (AutoApprove) AwaitApproval(ctx context.Context, environment string) error {
	return nil
}
