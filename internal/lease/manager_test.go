package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeLauncher struct {
	mu       sync.Mutex
	starts   int
	stops    []string
	startErr error
	stopErr  error
}

func (f *fakeLauncher) Start(ctx context.Context, clientID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.starts++
	return fmt.Sprintf("task-%d", f.starts), nil
}

func (f *fakeLauncher) Stop(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stops = append(f.stops, handle)
	return nil
}

func (f *fakeLauncher) stopped() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stops...)
}

func (f *fakeLauncher) started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestManager_BeginStartsWorker(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, time.Minute, true, zerolog.Nop())

	l, err := m.Begin(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if l.Handle != "task-1" || l.ClientID != "c1" {
		t.Errorf("Unexpected lease %+v", l)
	}
	if launcher.started() != 1 {
		t.Errorf("Expected 1 start, got %d", launcher.started())
	}
}

func TestManager_BeginPropagatesLauncherFailure(t *testing.T) {
	launcher := &fakeLauncher{startErr: errors.New("no capacity")}
	m := NewManager(launcher, time.Minute, true, zerolog.Nop())

	if _, err := m.Begin(context.Background(), "c1"); err == nil {
		t.Error("Expected Begin to propagate launcher failure")
	}
}

func TestManager_ReleaseStopsAfterDelay(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, 30*time.Millisecond, true, zerolog.Nop())

	l, _ := m.Begin(context.Background(), "c1")
	m.Release(l)

	if len(launcher.stopped()) != 0 {
		t.Error("Expected no stop before the grace delay")
	}
	waitFor(t, time.Second, func() bool { return len(launcher.stopped()) == 1 })
	if launcher.stopped()[0] != "task-1" {
		t.Errorf("Expected task-1 stopped, got %v", launcher.stopped())
	}
}

func TestManager_FastReconnectReusesLease(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, time.Minute, true, zerolog.Nop())

	l1, _ := m.Begin(context.Background(), "c1")
	m.Release(l1)

	// Reconnect within the grace delay: no second start, same handle.
	l2, err := m.Begin(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if l2.Handle != l1.Handle {
		t.Errorf("Expected reused handle %s, got %s", l1.Handle, l2.Handle)
	}
	if launcher.started() != 1 {
		t.Errorf("Expected 1 start after reuse, got %d", launcher.started())
	}
}

func TestManager_ReuseDisabledStartsSecondWorker(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, time.Minute, false, zerolog.Nop())

	l1, _ := m.Begin(context.Background(), "c1")
	m.Release(l1)

	l2, err := m.Begin(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if l2.Handle == l1.Handle {
		t.Error("Expected a distinct worker with reuse disabled")
	}
	if launcher.started() != 2 {
		t.Errorf("Expected 2 starts, got %d", launcher.started())
	}
}

func TestManager_ReuseOnlyMatchesSameClient(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, time.Minute, true, zerolog.Nop())

	l1, _ := m.Begin(context.Background(), "c1")
	m.Release(l1)

	l2, _ := m.Begin(context.Background(), "c2")
	if l2.Handle == l1.Handle {
		t.Error("Expected a different client to get its own worker")
	}
}

func TestManager_ShutdownFiresPendingStops(t *testing.T) {
	launcher := &fakeLauncher{}
	m := NewManager(launcher, time.Hour, true, zerolog.Nop())

	l, _ := m.Begin(context.Background(), "c1")
	m.Release(l)
	m.Shutdown()

	if got := launcher.stopped(); len(got) != 1 || got[0] != "task-1" {
		t.Errorf("Expected shutdown to stop task-1, got %v", got)
	}
}

func TestManager_StopFailureIsLoggedOnly(t *testing.T) {
	launcher := &fakeLauncher{stopErr: errors.New("task gone")}
	m := NewManager(launcher, 10*time.Millisecond, true, zerolog.Nop())

	l, _ := m.Begin(context.Background(), "c1")
	m.Release(l)

	// The teardown must swallow the failure; give the timer a chance to run.
	time.Sleep(50 * time.Millisecond)
}
