package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prev := Verbosity()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		SetVerbosity(int(prev))
	})
	return &buf
}

func TestVerbosityGatesMessages(t *testing.T) {
	buf := captureOutput(t)

	SetVerbosity(int(Info))
	Infof("pricing %d steps", 10)
	Debugf("hidden %d", 1)
	Tracef("hidden %d", 2)

	out := buf.String()
	require.Contains(t, out, "[INFO]  pricing 10 steps")
	require.NotContains(t, out, "hidden")
	require.True(t, Enabled(Error))
	require.False(t, Enabled(Debug))

	SetVerbosity(int(Trace))
	Tracef("u=%.2f", 1.5)
	require.Contains(t, buf.String(), "[TRACE] u=1.50")
}

func TestOutputFileReceivesMessages(t *testing.T) {
	captureOutput(t)
	SetVerbosity(int(Info))

	path := filepath.Join(t.TempDir(), "lattice.log")
	SetOutputFile(path, 1)
	Errorf("bracket does not straddle a root")
	require.NoError(t, Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "[ERROR] bracket does not straddle a root")
}
