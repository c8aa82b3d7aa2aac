package run_manager

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *RunManager {
	t.Helper()
	rm := &RunManager{tempDir: t.TempDir()}
	t.Cleanup(func() { rm.Clean() })
	return rm
}

func TestFunc_CreateRejectsSameNode(t *testing.T) {
	rm := newTestManager(t)
	if _, err := rm.Create("node-a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := rm.Create("node-a"); err == nil {
		t.Error("second Create on the same manager must fail")
	}

	other := &RunManager{tempDir: rm.tempDir}
	if _, err := other.Create("node-a"); err == nil {
		t.Error("a second runtime for the same uuid must be rejected")
	}
	if _, err := other.Create("node-b"); err != nil {
		t.Errorf("different uuid should be accepted: %v", err)
	}
	other.Clean()
}

func TestFunc_LockRoundTrip(t *testing.T) {
	rm := newTestManager(t)
	if _, err := rm.Create("node-a"); err != nil {
		t.Fatal(err)
	}
	started := time.Unix(1700000000, 0)
	path, err := rm.WriteLock(LockInfo{PID: 42, Version: "v1.2.3", NodeUUID: "node-a", Address: "0.0.0.0:8080", StartedAt: started})
	if err != nil {
		t.Fatalf("WriteLock: %v", err)
	}

	got, err := ReadLock(path)
	if err != nil {
		t.Fatalf("ReadLock: %v", err)
	}
	if got.PID != 42 || got.Version != "v1.2.3" || got.NodeUUID != "node-a" || !got.StartedAt.Equal(started) {
		t.Errorf("lock = %+v", got)
	}
}

func TestFunc_WatchFiresOnRemoval(t *testing.T) {
	rm := newTestManager(t)
	if _, err := rm.Create("node-a"); err != nil {
		t.Fatal(err)
	}
	path, err := rm.WriteLock(LockInfo{PID: 1, StartedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{})
	cancel, err := rm.Watch(context.Background(), LockFileName, 10*time.Millisecond, func() { close(fired) })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	os.Remove(path)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watch callback did not fire")
	}
}

func TestFunc_GetWithoutRuntime(t *testing.T) {
	rm := newTestManager(t)
	if _, err := rm.Get(LockFileName); err == nil {
		t.Error("expected an error before Create")
	}
}
