// internal/infra/supervisor/supervisor.go
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Watchdog keeps the notifier process alive: it starts it as a child,
// checks liveness through the pid marker file, and restarts it when it is
// gone. Coarse and best-effort; exactly one watchdog instance is assumed.
type Watchdog struct {
	logger     *logrus.Entry
	markerPath string
	command    string
	args       []string
	interval   time.Duration

	// AttachConsole pipes the child's stdout/stderr through the watchdog,
	// for running with a visible console.
	AttachConsole bool
}

func NewWatchdog(logger *logrus.Entry, markerPath, command string, args []string, interval time.Duration) *Watchdog {
	return &Watchdog{
		logger:     logger,
		markerPath: markerPath,
		command:    command,
		args:       args,
		interval:   interval,
	}
}

// Start launches the notifier as a detached child process. The child writes
// its own pid marker on startup.
func (w *Watchdog) Start() (int, error) {
	cmd := exec.Command(w.command, w.args...)
	if w.AttachConsole {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start notifier process: %w", err)
	}
	pid := cmd.Process.Pid
	// Reap the child when it exits so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	w.logger.WithField("pid", pid).Info("Notifier process started")
	return pid, nil
}

// IsRunning reports the notifier's liveness based on the pid marker file and
// a signal-0 probe.
func (w *Watchdog) IsRunning() (int, bool) {
	pid, err := ReadMarker(w.markerPath)
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// Watch runs the monitor loop until ctx is cancelled: every interval, check
// liveness and restart the notifier if it is not running.
func (w *Watchdog) Watch(ctx context.Context) error {
	if _, running := w.IsRunning(); !running {
		if _, err := w.Start(); err != nil {
			w.logger.WithError(err).Error("Initial notifier start failed")
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watchdog stopping")
			return nil
		case <-ticker.C:
			if pid, running := w.IsRunning(); running {
				w.logger.WithField("pid", pid).Debug("Notifier alive")
				continue
			}
			w.logger.Warn("Notifier not running; restarting")
			if _, err := w.Start(); err != nil {
				w.logger.WithError(err).Error("Notifier restart failed")
			}
		}
	}
}

// WriteMarker records the calling process's pid as the liveness marker.
// Called by the notifier itself on startup.
func WriteMarker(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemoveMarker deletes the liveness marker. A missing marker is not an error.
func RemoveMarker(path string) {
	_ = os.Remove(path)
}

// ReadMarker parses the pid out of the marker file.
func ReadMarker(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid marker %s: %w", path, err)
	}
	return pid, nil
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
