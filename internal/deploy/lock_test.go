package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newLockServer(states ...string) (*httptest.Server, *int) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := states[len(states)-1]
		if polls < len(states) {
			state = states[polls]
		}
		polls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"state": %q}`, state)
	}))
	return server, &polls
}

func newTestGate(url string) *LockServiceGate {
	return NewLockServiceGate(url, time.Millisecond, 100*time.Millisecond)
}

func TestLockGateGranted(t *testing.T) {
	server, polls := newLockServer(lockStateGranted)
	defer server.Close()

	if err := newTestGate(server.URL).AwaitApproval(context.Background(), "production"); err != nil {
		t.Fatal("Expected approval:", err)
	}
	if *polls != 1 {
		t.Fatalf("Expected a single poll, got %d", *polls)
	}
}

func TestLockGateDenied(t *testing.T) {
	server, polls := newLockServer(lockStateDenied)
	defer server.Close()

	err := newTestGate(server.URL).AwaitApproval(context.Background(), "production")
	if !errors.Is(err, ErrApprovalDenied) {
		t.Fatalf("Expected ErrApprovalDenied, got: %v", err)
	}
	if *polls != 1 {
		t.Fatalf("Denial must not be re-polled, got %d polls", *polls)
	}
}

func TestLockGatePendingThenGranted(t *testing.T) {
	server, polls := newLockServer(lockStatePending, lockStatePending, lockStateGranted)
	defer server.Close()

	if err := newTestGate(server.URL).AwaitApproval(context.Background(), "production"); err != nil {
		t.Fatal("Expected approval after pending:", err)
	}
	if *polls != 3 {
		t.Fatalf("Expected 3 polls, got %d", *polls)
	}
}

func TestLockGateTimeout(t *testing.T) {
	server, _ := newLockServer(lockStatePending)
	defer server.Close()

	err := newTestGate(server.URL).AwaitApproval(context.Background(), "production")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if errors.Is(err, ErrApprovalDenied) {
		t.Fatal("Timeout must not look like a denial")
	}
}
