package trigger

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyPush(t *testing.T) {
	desc, err := Classify(Event{Kind: KindPush, Commit: "abc123"})
	if err != nil {
		t.Fatal("Failed to classify push event:", err)
	}

	expected := &Descriptor{Kind: KindPush, Commit: "abc123"}
	if diff := cmp.Diff(expected, desc); diff != "" {
		t.Fatalf("Unexpected descriptor (-want +got):\n%s", diff)
	}

	if desc.RequiresArtifact() {
		t.Fatal("Push trigger must not require artifact production")
	}
}

func TestClassifyPushIgnoresEnvironment(t *testing.T) {
	// The push trigger is parameterless; a stray environment must not leak.
	desc, err := Classify(Event{Kind: KindPush, Environment: "production", Commit: "abc123"})
	if err != nil {
		t.Fatal("Failed to classify push event:", err)
	}
	if desc.Environment != "" {
		t.Fatalf("Push descriptor must not carry an environment, got %q", desc.Environment)
	}
}

func TestClassifyManual(t *testing.T) {
	for _, env := range KnownEnvironments {
		desc, err := Classify(Event{Kind: KindManual, Environment: env, Commit: "abc123"})
		if err != nil {
			t.Fatalf("Failed to classify manual dispatch to %s: %v", env, err)
		}
		if desc.Environment != env {
			t.Fatalf("Invalid environment: %q, expected: %q", desc.Environment, env)
		}
		if !desc.RequiresArtifact() {
			t.Fatal("Manual dispatch must require artifact production")
		}
	}
}

func TestClassifyManualUnknownEnvironment(t *testing.T) {
	_, err := Classify(Event{Kind: KindManual, Environment: "prod", Commit: "abc123"})
	if !errors.Is(err, ErrUnknownEnvironment) {
		t.Fatalf("Expected ErrUnknownEnvironment, got: %v", err)
	}
}

func TestClassifyManualMissingEnvironment(t *testing.T) {
	_, err := Classify(Event{Kind: KindManual, Commit: "abc123"})
	if !errors.Is(err, ErrMissingEnvironment) {
		t.Fatalf("Expected ErrMissingEnvironment, got: %v", err)
	}
}

func TestClassifyPushPathFilter(t *testing.T) {
	relevant := [][]string{
		{"main.py"},
		{"README.md", "model_providers/ollama.py"},
		{"requirements.txt"},
		{"Dockerfile"},
		nil, // unknown change set is treated as relevant
	}
	for _, paths := range relevant {
		if _, err := Classify(Event{Kind: KindPush, Commit: "abc123", ChangedPaths: paths}); err != nil {
			t.Fatalf("Push with %v must be relevant: %v", paths, err)
		}
	}

	_, err := Classify(Event{Kind: KindPush, Commit: "abc123", ChangedPaths: []string{"README.md", "docs/setup.md"}})
	if !errors.Is(err, ErrIrrelevantPush) {
		t.Fatalf("Expected ErrIrrelevantPush, got: %v", err)
	}
}

func TestClassifyUnknownKind(t *testing.T) {
	_, err := Classify(Event{Kind: "schedule", Commit: "abc123"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Expected ErrUnknownKind, got: %v", err)
	}
}
