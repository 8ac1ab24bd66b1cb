//go:build !windows

package state

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwner_WatchSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	owner := NewOwner(New([]string{"boa"}), path)

	codes := make(chan int, 1)
	ctx, stop := owner.Watch(context.Background(), func(code int) { codes <- code })
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case code := <-codes:
		assert.Equal(t, InterruptExitCode, code)
	case <-time.After(5 * time.Second):
		t.Fatal("exit was not called after SIGTERM")
	}
	assert.Error(t, ctx.Err(), "context must be cancelled on interrupt")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"boa"}, loaded.Selected())
}
