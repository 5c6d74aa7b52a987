package pipeliner

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mcpdeliver/pipeliner/api"
)

type Client struct {
	client *resty.Client
	token  string
}

func NewClient(endpoint, token string) (*Client, error) {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10)

	return &Client{client, token}, nil
}

// DispatchRun starts a pipeline run on the daemon. An empty
// environment dispatches a push-style run (tests only); a non-empty
// one a manual deploy to that environment.
func (c *Client) DispatchRun(environment, commit string) (*api.RunInfo, error) {
	res := &api.DispatchRunResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetBody(api.DispatchRunRequest{
			Token:       c.token,
			Environment: environment,
			Commit:      commit,
		}).
		Post("/api/runs")
	if err != nil {
		return nil, err
	}

	if !res.Ok {
		return nil, fmt.Errorf("failed to dispatch run: %s", res.Error)
	}

	return res.Run, nil
}

func (c *Client) ListRuns() ([]*api.RunInfo, error) {
	res := &api.RunsResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetQueryParam("token", c.token).
		Get("/api/runs")
	if err != nil {
		return nil, err
	}

	if !res.Ok {
		return nil, fmt.Errorf("failed to list runs: %s", res.Error)
	}

	return res.Runs, nil
}

func (c *Client) GetRun(id string) (*api.RunInfo, error) {
	res := &api.RunResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetQueryParam("token", c.token).
		SetPathParam("id", id).
		Get("/api/runs/{id}")
	if err != nil {
		return nil, err
	}

	if !res.Ok {
		return nil, fmt.Errorf("failed to fetch run: %s", res.Error)
	}

	return res.Run, nil
}
