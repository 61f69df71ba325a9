package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"timely/internal/apperr"
)

// PIDFile is the daemon's on-disk lifecycle marker: written on start,
// removed on clean exit, probed by start/stop/status.
type PIDFile struct {
	Path string
}

// Acquire writes the current process id, refusing when a live daemon
// already holds the file. A stale file left by a crashed process is
// overwritten.
func (p *PIDFile) Acquire() error {
	if pid, ok, err := p.Read(); err != nil {
		return err
	} else if ok && processAlive(pid) {
		return apperr.New(apperr.CodeDaemonAlreadyRunning, "daemon already running (pid %d)", pid)
	}
	if err := os.WriteFile(p.Path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return apperr.Wrap(apperr.CodeIO, err, "write pid file")
	}
	return nil
}

// Release removes the file. Safe to call when it is already gone.
func (p *PIDFile) Release() {
	_ = os.Remove(p.Path)
}

// Read returns the recorded pid, with ok=false when no file exists or it
// holds garbage.
func (p *PIDFile) Read() (int, bool, error) {
	raw, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Wrap(apperr.CodeIO, err, "read pid file")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false, nil
	}
	return pid, true, nil
}

// Status reports whether a live daemon holds the file.
func (p *PIDFile) Status() (pid int, running bool, err error) {
	pid, ok, err := p.Read()
	if err != nil || !ok {
		return 0, false, err
	}
	if !processAlive(pid) {
		return 0, false, nil
	}
	return pid, true, nil
}

// Stop signals the recorded process and removes the file.
func (p *PIDFile) Stop() (int, error) {
	pid, running, err := p.Status()
	if err != nil {
		return 0, err
	}
	if !running {
		return 0, apperr.ErrDaemonNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIO, err, "find daemon process")
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signal daemon (pid %d): %w", pid, err)
	}
	p.Release()
	return pid, nil
}

// signal 0 probes existence without delivering anything
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
