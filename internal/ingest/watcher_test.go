package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func nextPath(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatcherInitialScanAndCreate(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.csv")
	require.NoError(t, os.WriteFile(existing, []byte("a\n1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("x"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
		Logger:      quietLogger,
	})
	require.NoError(t, err)

	assert.Equal(t, existing, nextPath(t, events))

	created := filepath.Join(root, "new.xlsx")
	require.NoError(t, os.WriteFile(created, []byte("data"), 0o600))
	assert.Equal(t, created, nextPath(t, events))

	cancel()
	for range events {
	}
	for range errs {
	}
}

func TestWatcherNoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{Logger: quietLogger})
	assert.Error(t, err)
}
