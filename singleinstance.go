package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning means another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// SingleInstance keeps a second process from installing a second global
// hook.
type SingleInstance struct {
	lockFile *os.File
	lockPath string
}

// NewSingleInstance creates a lock named appName in dir, or in the system
// temp directory when dir is empty.
func NewSingleInstance(dir, appName string) *SingleInstance {
	if dir == "" {
		dir = os.TempDir()
	}
	return &SingleInstance{
		lockPath: filepath.Join(dir, fmt.Sprintf("%s.lock", appName)),
	}
}

// TryLock acquires the lock. A lock left by a dead process is replaced.
func (si *SingleInstance) TryLock() error {
	return si.tryLock(true)
}

func (si *SingleInstance) tryLock(reclaim bool) error {
	file, err := os.OpenFile(si.lockPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("create lock file: %w", err)
		}
		if !reclaim || si.holderAlive() {
			return ErrAlreadyRunning
		}
		os.Remove(si.lockPath)
		return si.tryLock(false)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(si.lockPath)
		return fmt.Errorf("write lock file: %w", err)
	}
	si.lockFile = file
	return nil
}

// holderAlive reports whether the process recorded in the lock file runs.
func (si *SingleInstance) holderAlive() bool {
	data, err := os.ReadFile(si.lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	return isProcessRunning(pid)
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 checks for existence on Unix-like systems
	return process.Signal(syscall.Signal(0)) == nil
}

// Release releases the lock when the application is shutting down
func (si *SingleInstance) Release() {
	if si.lockFile == nil {
		return
	}
	si.lockFile.Close()
	si.lockFile = nil
	os.Remove(si.lockPath)
}
