package capture

import (
	"testing"
	"time"
)

func TestRunnerRequiresCommand(t *testing.T) {
	r := NewRunner("  ", nil)
	if err := r.Start(nil); err == nil {
		t.Fatalf("expected error for empty worker command")
	}
	if r.IsRunning() {
		t.Fatalf("runner should not be running")
	}
}

func TestRunnerStartStop(t *testing.T) {
	exited := make(chan error, 1)
	r := NewRunner("sleep 30", func(err error) { exited <- err })
	if err := r.Start(map[string]string{"KIOSK_ID": "1"}); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	if !r.IsRunning() {
		t.Fatalf("expected runner to be running")
	}
	if err := r.Start(nil); err == nil {
		t.Fatalf("second start should fail while running")
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("exit callback not invoked")
	}
	if r.IsRunning() {
		t.Fatalf("runner should be stopped")
	}
}
