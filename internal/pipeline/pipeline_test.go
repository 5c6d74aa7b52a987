package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mcpdeliver/pipeliner/internal/envconf"
	"github.com/mcpdeliver/pipeliner/internal/environments"
	"github.com/mcpdeliver/pipeliner/internal/models"
	"github.com/mcpdeliver/pipeliner/internal/registry"
	"github.com/mcpdeliver/pipeliner/internal/trigger"
)

type fakeComponents struct {
	testErr   error
	buildErr  error
	deployErr error
	verifyErr error

	tested   int
	built    []string
	deployed []string
	verified []string

	testConfig envconf.Config
}

func (f *fakeComponents) RunTests(ctx context.Context, config envconf.Config) error {
	f.tested++
	f.testConfig = config
	return f.testErr
}

func (f *fakeComponents) Build(ctx context.Context, commit string) (*registry.Image, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.built = append(f.built, commit)
	return &registry.Image{ID: "sha256:" + commit}, nil
}

func (f *fakeComponents) Publish(ctx context.Context, image *registry.Image, commit string) (*registry.PublishResult, error) {
	ref := registry.Ref{Registry: "registry.mcp.internal", Repository: "mcp/server", Tag: commit}
	return &registry.PublishResult{
		CommitRef: ref,
		LatestRef: ref.WithTag(registry.TagLatest),
		ImageID:   image.ID,
	}, nil
}

func (f *fakeComponents) Deploy(ctx context.Context, environment string, ref registry.Ref) error {
	if f.deployErr != nil {
		return f.deployErr
	}
	f.deployed = append(f.deployed, environment+"="+ref.Tag)
	return nil
}

func (f *fakeComponents) Verify(ctx context.Context, baseURL string) error {
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verified = append(f.verified, baseURL)
	return nil
}

func testEnvironments() environments.Environments {
	return environments.Environments{{
		Name:    "staging",
		Host:    "0.0.0.0",
		Port:    8000,
		BaseURL: "https://staging.mcp.internal",
	}, {
		Name:    "production",
		Host:    "0.0.0.0",
		Port:    8000,
		BaseURL: "https://mcp.internal",
	}}
}

func newDelivery(f *fakeComponents) *Pipeline {
	return NewDelivery(zap.NewNop(), Components{
		Tester:       f,
		Builder:      f,
		Publisher:    f,
		Deployer:     f,
		Verifier:     f,
		Environments: testEnvironments(),
	}, nil)
}

func manualRun(env string) *Run {
	return NewRun(trigger.Descriptor{Kind: trigger.KindManual, Environment: env, Commit: "abc123"})
}

func pushRun() *Run {
	return NewRun(trigger.Descriptor{Kind: trigger.KindPush, Commit: "abc123"})
}

func checkStage(t *testing.T, run *Run, stage string, status models.StageStatus) {
	t.Helper()
	if got := run.StageStatus(stage); got != status {
		t.Fatalf("Stage %s is %q, expected %q", stage, got, status)
	}
}

func TestManualDispatchHappyPath(t *testing.T) {
	f := &fakeComponents{}
	run := manualRun("staging")

	if err := newDelivery(f).Execute(context.Background(), run); err != nil {
		t.Fatal("Run failed:", err)
	}

	if run.Status != models.RunStatusSucceeded {
		t.Fatalf("Run status is %q", run.Status)
	}
	checkStage(t, run, StageTest, models.StageStatusSucceeded)
	checkStage(t, run, StageBuild, models.StageStatusSucceeded)
	checkStage(t, run, StageDeploy, models.StageStatusSucceeded)
	checkStage(t, run, StageVerify, models.StageStatusSucceeded)

	if len(f.deployed) != 1 || f.deployed[0] != "staging=abc123" {
		t.Fatalf("Unexpected deploys: %v", f.deployed)
	}
	if len(f.verified) != 1 || f.verified[0] != "https://staging.mcp.internal" {
		t.Fatalf("Unexpected verifications: %v", f.verified)
	}
	if run.ImageTag != "abc123" {
		t.Fatalf("Invalid image tag: %s", run.ImageTag)
	}
}

func TestPushRunsOnlyTests(t *testing.T) {
	f := &fakeComponents{}
	run := pushRun()

	if err := newDelivery(f).Execute(context.Background(), run); err != nil {
		t.Fatal("Run failed:", err)
	}

	if f.tested != 1 {
		t.Fatalf("Test stage ran %d times", f.tested)
	}
	if len(f.built)+len(f.deployed)+len(f.verified) != 0 {
		t.Fatal("Push run must not build, deploy or verify")
	}
	checkStage(t, run, StageBuild, models.StageStatusSkipped)
	checkStage(t, run, StageDeploy, models.StageStatusSkipped)
	checkStage(t, run, StageVerify, models.StageStatusSkipped)

	if run.Status != models.RunStatusSkipped {
		t.Fatalf("Run status is %q", run.Status)
	}
}

func TestFailFastOnTestFailure(t *testing.T) {
	f := &fakeComponents{testErr: errors.New("3 tests failed")}
	run := manualRun("staging")

	err := newDelivery(f).Execute(context.Background(), run)
	if err == nil {
		t.Fatal("Expected run failure")
	}

	if run.Status != models.RunStatusFailed {
		t.Fatalf("Run status is %q", run.Status)
	}
	if run.FailedStage != StageTest {
		t.Fatalf("Failed stage is %q", run.FailedStage)
	}
	if len(f.built)+len(f.deployed)+len(f.verified) != 0 {
		t.Fatal("No stage may run after a test failure")
	}
	checkStage(t, run, StageBuild, models.StageStatusSkipped)
	checkStage(t, run, StageDeploy, models.StageStatusSkipped)
	checkStage(t, run, StageVerify, models.StageStatusSkipped)
}

func TestBuildFailureHaltsDeploy(t *testing.T) {
	f := &fakeComponents{buildErr: errors.New("registry auth failure")}
	run := manualRun("production")

	if err := newDelivery(f).Execute(context.Background(), run); err == nil {
		t.Fatal("Expected run failure")
	}

	if run.FailedStage != StageBuild {
		t.Fatalf("Failed stage is %q", run.FailedStage)
	}
	if len(f.deployed)+len(f.verified) != 0 {
		t.Fatal("Deploy and verify must not run after a build failure")
	}
}

func TestVerificationFailureLeavesDeployLive(t *testing.T) {
	f := &fakeComponents{verifyErr: errors.New("Liveness probe failed: unexpected status 503")}
	run := manualRun("staging")

	if err := newDelivery(f).Execute(context.Background(), run); err == nil {
		t.Fatal("Expected run failure")
	}

	if run.Status != models.RunStatusFailed {
		t.Fatalf("Run status is %q", run.Status)
	}
	if run.FailedStage != StageVerify {
		t.Fatalf("Failed stage is %q", run.FailedStage)
	}
	// No rollback: the deploy stays recorded as succeeded.
	checkStage(t, run, StageDeploy, models.StageStatusSucceeded)
	if len(f.deployed) != 1 {
		t.Fatalf("Unexpected deploys: %v", f.deployed)
	}
}

func TestTestStageUsesSyntheticConfig(t *testing.T) {
	f := &fakeComponents{}
	run := manualRun("production")

	if err := newDelivery(f).Execute(context.Background(), run); err != nil {
		t.Fatal("Run failed:", err)
	}

	if f.testConfig[envconf.KeyEnvironment] != "test" {
		t.Fatalf("Test stage got %q config", f.testConfig[envconf.KeyEnvironment])
	}
	if f.testConfig[envconf.KeyDatabaseURL] == "" {
		t.Fatal("Synthetic config must provide a database url")
	}
}

type recordingObserver struct {
	stages []string
	runs   []string
}

func (o *recordingObserver) StageFinished(run *Run, result StageResult) {
	o.stages = append(o.stages, result.Name+":"+result.Status)
}

func (o *recordingObserver) RunFinished(run *Run) {
	o.runs = append(o.runs, run.Status)
}

func TestObserverSeesEveryStage(t *testing.T) {
	f := &fakeComponents{}
	observer := &recordingObserver{}
	run := pushRun()

	pipeline := NewDelivery(zap.NewNop(), Components{
		Tester:       f,
		Builder:      f,
		Publisher:    f,
		Deployer:     f,
		Verifier:     f,
		Environments: testEnvironments(),
	}, observer)

	if err := pipeline.Execute(context.Background(), run); err != nil {
		t.Fatal("Run failed:", err)
	}

	expected := []string{
		"test:succeeded",
		"build-and-publish:skipped",
		"deploy:skipped",
		"verify:skipped",
	}
	if len(observer.stages) != len(expected) {
		t.Fatalf("Observed stages: %v", observer.stages)
	}
	for i, want := range expected {
		if observer.stages[i] != want {
			t.Fatalf("Observed stages: %v", observer.stages)
		}
	}
	if len(observer.runs) != 1 || observer.runs[0] != models.RunStatusSkipped {
		t.Fatalf("Observed runs: %v", observer.runs)
	}
}

func TestCancelledRunLeavesLaterStagesUnexecuted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	f := &fakeComponents{}
	stages := []Stage{
		{
			Name:  StageTest,
			Enter: models.RunStatusTesting,
			Run: func(ctx context.Context, run *Run) error {
				cancel()
				return ctx.Err()
			},
		},
		{
			Name:  StageBuild,
			Needs: []string{StageTest},
			Enter: models.RunStatusBuilding,
			Run: func(ctx context.Context, run *Run) error {
				f.built = append(f.built, run.Trigger.Commit)
				return nil
			},
		},
	}

	run := manualRun("staging")
	if err := NewPipeline(zap.NewNop(), stages, nil).Execute(ctx, run); err == nil {
		t.Fatal("Expected run failure on cancellation")
	}

	if len(f.built) != 0 {
		t.Fatal("Later stages must not execute after cancellation")
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("Run status is %q", run.Status)
	}
}
