package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "mock-backend", "demo", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "chatwidget dev\n", out.String())
}

func TestDefaultConfigPathFromEnv(t *testing.T) {
	t.Setenv("CHATWIDGET_CONFIG", "/etc/chatwidget.yaml")
	assert.Equal(t, "/etc/chatwidget.yaml", defaultConfigPath())
}

func TestSetupDiscardsTerminalLogsForTUI(t *testing.T) {
	path := writeConfig(t, "logger:\n  output: stderr\n")

	rt, err := setup(context.Background(), path, true)
	require.NoError(t, err)
	defer rt.close()
	assert.Equal(t, "discard", rt.cfg.Logger.Output)

	rt2, err := setup(context.Background(), path, false)
	require.NoError(t, err)
	defer rt2.close()
	assert.Equal(t, "stderr", rt2.cfg.Logger.Output)
}

func TestSetupInvalidConfig(t *testing.T) {
	path := writeConfig(t, "endpoint:\n  codec: xml\n")
	_, err := setup(context.Background(), path, false)
	assert.Error(t, err)
}

func TestNewBackendWithSQLiteSink(t *testing.T) {
	db := filepath.Join(t.TempDir(), "feedback.db")
	path := writeConfig(t, "logger:\n  output: discard\nbackend:\n  feedback_db: "+db+"\n")

	rt, err := setup(context.Background(), path, false)
	require.NoError(t, err)
	defer rt.close()

	srv, sink, err := rt.newBackend()
	require.NoError(t, err)
	defer sink.Close()
	assert.Same(t, sink, srv.Sink())

	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestMockBackendCommandStopsOnCancel(t *testing.T) {
	path := writeConfig(t, "logger:\n  output: discard\n")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "mock-backend", "--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- root.ExecuteContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("mock-backend did not stop after cancel")
	}
}
