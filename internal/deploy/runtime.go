package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/registry"
)

// RuntimeController instructs a target environment's runtime to adopt
// a published artifact and reports which tag is currently live.
type RuntimeController interface {
	Activate(ctx context.Context, env *environments.Environment, ref registry.Ref, config envconf.Config) error
	ActiveTag(ctx context.Context, env *environments.Environment) (string, error)
}

type activateRequest struct {
	Image  string            `json:"image"`
	Config map[string]string `json:"config"`
}

type statusResponse struct {
	Ok       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	ImageTag string `json:"image_tag,omitempty"`
}

// AgentController drives the node agent running next to each
// environment. The agent pulls the image, writes the dotenv file and
// restarts the service container.
type AgentController struct {
	client *resty.Client
}

func NewAgentController() *AgentController {
	return &AgentController{
		client: resty.New().SetTimeout(time.Minute),
	}
}

func (c *AgentController) Activate(ctx context.Context, env *environments.Environment, ref registry.Ref, config envconf.Config) error {
	res := &statusResponse{}
	_, err := c.client.R().
		SetContext(ctx).
		SetBody(activateRequest{
			Image:  ref.String(),
			Config: config,
		}).
		SetResult(res).
		Post(env.AgentURL + "/v1/activate")
	if err != nil {
		return errors.Wrapf(err, "Failed to reach agent of %s", env.Name)
	}
	if !res.Ok {
		return fmt.Errorf("agent refused activation: %s", res.Error)
	}
	return nil
}

func (c *AgentController) ActiveTag(ctx context.Context, env *environments.Environment) (string, error) {
	res := &statusResponse{}
	_, err := c.client.R().
		SetContext(ctx).
		SetResult(res).
		Get(env.AgentURL + "/v1/status")
	if err != nil {
		return "", errors.Wrapf(err, "Failed to reach agent of %s", env.Name)
	}
	if !res.Ok {
		return "", fmt.Errorf("agent status failed: %s", res.Error)
	}
	return res.ImageTag, nil
}
