// Package run_manager owns the node's runtime directory under os.TempDir
// and the run.lock file describing the running process.
package run_manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/akyaiy/rdata-node/internal/core/utils"
	"gopkg.in/ini.v1"
)

const (
	runtimeSuffix = "rdata-runtime"
	LockFileName  = "run.lock"
)

type RunManagerContract interface {
	Get(index string) (string, error)

	// Set creates an empty file under the runtime directory, with parents.
	Set(index string) error

	Watch(parentCtx context.Context, index string, interval time.Duration, callback func()) (context.CancelFunc, error)
	Clean() error
}

type RunManager struct {
	mu           sync.Mutex
	tempDir      string
	runDir       string
	indexedPaths map[string]string
}

// LockInfo is written to run.lock.
type LockInfo struct {
	PID       int
	Version   string
	NodeUUID  string
	Address   string
	StartedAt time.Time
}

func New() *RunManager {
	return &RunManager{tempDir: os.TempDir()}
}

func (rm *RunManager) pattern(nodeUUID string) string {
	return filepath.Join(rm.tempDir, fmt.Sprintf("*-%s-%s", nodeUUID, runtimeSuffix))
}

// Create makes the runtime directory. It fails if another runtime for the
// same node uuid is already present.
func (rm *RunManager) Create(nodeUUID string) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.runDir != "" {
		return rm.runDir, fmt.Errorf("runtime directory is already created")
	}
	exist, err := utils.ExistsMatchingDirs(rm.pattern(nodeUUID), "")
	if err != nil {
		return "", err
	}
	if exist {
		return "", fmt.Errorf("a node with uuid %s is already running in this environment", nodeUUID)
	}

	path, err := os.MkdirTemp(rm.tempDir, fmt.Sprintf("*-%s-%s", nodeUUID, runtimeSuffix))
	if err != nil {
		return "", err
	}
	rm.runDir = path
	rm.indexedPaths = make(map[string]string)
	return path, nil
}

func (rm *RunManager) RuntimeDir() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.runDir
}

func (rm *RunManager) Clean() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.runDir == "" {
		return nil
	}
	dir := rm.runDir
	rm.runDir = ""
	rm.indexedPaths = nil
	return utils.CleanTempRuntimes(dir)
}

func (rm *RunManager) Get(index string) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.runDir == "" {
		return "", fmt.Errorf("runtime directory is not created")
	}
	if value, ok := rm.indexedPaths[index]; ok {
		return value, nil
	}
	indexed, err := utils.IndexPaths(rm.runDir)
	if err != nil {
		return "", err
	}
	rm.indexedPaths = indexed
	value, ok := indexed[index]
	if !ok {
		return "", fmt.Errorf("cannot detect file under index %s", index)
	}
	return value, nil
}

func (rm *RunManager) Set(index string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.runDir == "" {
		return fmt.Errorf("runtime directory is not created")
	}
	fullPath := filepath.Join(rm.runDir, index)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	f.Close()
	rm.indexedPaths[filepath.ToSlash(index)] = fullPath
	return nil
}

// WriteLock creates run.lock in INI format.
func (rm *RunManager) WriteLock(info LockInfo) (string, error) {
	if err := rm.Set(LockFileName); err != nil {
		return "", err
	}
	lockPath, err := rm.Get(LockFileName)
	if err != nil {
		return "", err
	}

	lockFile := ini.Empty()
	secRun, err := lockFile.NewSection("runtime")
	if err != nil {
		return "", err
	}
	secRun.Key("pid").SetValue(strconv.Itoa(info.PID))
	secRun.Key("version").SetValue(info.Version)
	secRun.Key("uuid").SetValue(info.NodeUUID)
	secRun.Key("address").SetValue(info.Address)
	secRun.Key("timestamp").SetValue(info.StartedAt.Format("2006-01-02/15:04:05 MST"))
	secRun.Key("timestamp-unix").SetValue(strconv.FormatInt(info.StartedAt.Unix(), 10))

	if err := lockFile.SaveTo(lockPath); err != nil {
		return "", err
	}
	return lockPath, nil
}

// ReadLock parses run.lock back.
func ReadLock(path string) (*LockInfo, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	sec := f.Section("runtime")
	pid, err := sec.Key("pid").Int()
	if err != nil {
		return nil, fmt.Errorf("run.lock pid: %w", err)
	}
	ts, err := sec.Key("timestamp-unix").Int64()
	if err != nil {
		return nil, fmt.Errorf("run.lock timestamp: %w", err)
	}
	return &LockInfo{
		PID:       pid,
		Version:   sec.Key("version").String(),
		NodeUUID:  sec.Key("uuid").String(),
		Address:   sec.Key("address").String(),
		StartedAt: time.Unix(ts, 0),
	}, nil
}

// Watch calls callback once if the indexed file is removed, replaced or
// modified. The returned cancel stops watching.
func (rm *RunManager) Watch(parentCtx context.Context, index string, interval time.Duration, callback func()) (context.CancelFunc, error) {
	path, err := rm.Get(index)
	if err != nil {
		return nil, err
	}
	orig, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur, err := os.Stat(path)
				if err != nil && !os.IsNotExist(err) {
					continue
				}
				if err != nil || !os.SameFile(orig, cur) || !cur.ModTime().Equal(orig.ModTime()) {
					callback()
					return
				}
			}
		}
	}()
	return cancel, nil
}
