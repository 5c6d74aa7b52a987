package environments

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const threeEnvironmentsYaml = `
- environment: development
  host: 0.0.0.0
  port: 8000
  apiPrefix: /api/v1
  baseURL: http://localhost:8000
  agentURL: http://localhost:9000
  ollamaModel: mistral

- environment: staging
  host: 0.0.0.0
  port: 8000
  apiPrefix: /api/v1
  baseURL: https://staging.mcp.internal
  agentURL: https://staging.mcp.internal:9000
  ollamaModel: mistral

- environment: production
  host: 0.0.0.0
  port: 8000
  apiPrefix: /api/v1
  baseURL: https://mcp.internal
  agentURL: https://mcp.internal:9000
  ollamaModel: mistral
`

func TestEnvironmentsParsing(t *testing.T) {
	envs, err := Parse([]byte(threeEnvironmentsYaml))
	if err != nil {
		t.Fatal("Failed to parse environments:", err)
	}

	if len(envs) != 3 {
		t.Fatalf("Expected 3 environments, got %d", len(envs))
	}

	expected := Environment{
		Name:        "staging",
		Host:        "0.0.0.0",
		Port:        8000,
		ApiPrefix:   "/api/v1",
		BaseURL:     "https://staging.mcp.internal",
		AgentURL:    "https://staging.mcp.internal:9000",
		OllamaModel: "mistral",
	}
	if diff := cmp.Diff(expected, envs[1]); diff != "" {
		t.Fatalf("Unexpected staging environment (-want +got):\n%s", diff)
	}
}

func TestEnvironmentsRejectUnknownName(t *testing.T) {
	_, err := Parse([]byte(`
- environment: sandbox
  host: 0.0.0.0
  port: 8000
  baseURL: http://localhost:8000
`))
	if err == nil {
		t.Fatal("Expected error for unknown environment name")
	}
}

func TestEnvironmentsRejectDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
- environment: staging
  host: 0.0.0.0
  port: 8000
  baseURL: http://a
- environment: staging
  host: 0.0.0.0
  port: 8000
  baseURL: http://b
`))
	if err == nil {
		t.Fatal("Expected error for duplicate environment")
	}
}

func TestEnvironmentsFind(t *testing.T) {
	envs, err := Parse([]byte(threeEnvironmentsYaml))
	if err != nil {
		t.Fatal("Failed to parse environments:", err)
	}

	env, err := envs.Find("production")
	if err != nil {
		t.Fatal("Failed to find production:", err)
	}
	if env.BaseURL != "https://mcp.internal" {
		t.Fatalf("Invalid baseURL: %s", env.BaseURL)
	}

	if _, err = envs.Find("qa"); err == nil {
		t.Fatal("Expected error for undeclared environment")
	}
}
