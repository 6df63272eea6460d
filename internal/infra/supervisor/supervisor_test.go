package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestMarkerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.pid")

	require.NoError(t, WriteMarker(path))
	pid, err := ReadMarker(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	RemoveMarker(path)
	_, err = ReadMarker(path)
	assert.Error(t, err)

	// Removing an already-missing marker is fine.
	RemoveMarker(path)
}

func TestReadMarkerRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	_, err := ReadMarker(path)
	assert.Error(t, err)
}

func TestIsRunningForLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.pid")
	require.NoError(t, WriteMarker(path)) // our own pid is certainly alive

	w := NewWatchdog(testEntry(), path, "true", nil, time.Minute)
	pid, running := w.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunningForDeadProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.pid")
	// A pid far beyond any plausible pid_max.
	require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o644))

	w := NewWatchdog(testEntry(), path, "true", nil, time.Minute)
	_, running := w.IsRunning()
	assert.False(t, running)
}

func TestIsRunningWithoutMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.pid")
	w := NewWatchdog(testEntry(), path, "true", nil, time.Minute)
	_, running := w.IsRunning()
	assert.False(t, running)
}

func TestStartLaunchesProcess(t *testing.T) {
	w := NewWatchdog(testEntry(), filepath.Join(t.TempDir(), "x.pid"), "true", nil, time.Minute)
	pid, err := w.Start()
	require.NoError(t, err)
	assert.Greater(t, pid, 0)
}

func TestStartFailsForMissingBinary(t *testing.T) {
	w := NewWatchdog(testEntry(), filepath.Join(t.TempDir(), "x.pid"), "/nonexistent/binary", nil, time.Minute)
	_, err := w.Start()
	assert.Error(t, err)
}
