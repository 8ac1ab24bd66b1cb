//go:build !windows

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
)

func TestAppRun_Interrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	var closes atomic.Int32
	a := &app{
		env:   &env{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		owner: state.NewOwner(state.New(nil), statePath),
		closers: []func() error{func() error {
			closes.Add(1)
			return nil
		}},
	}
	codes := make(chan int, 1)

	err := a.run(context.Background(), func(code int) { codes <- code }, func(ctx context.Context) error {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
		<-ctx.Done()
		return ctx.Err()
	})
	a.Close()

	var silent *SilentExitError
	require.True(t, errors.As(err, &silent), "err = %v", err)
	assert.Equal(t, state.InterruptExitCode, silent.Code)

	select {
	case code := <-codes:
		assert.Equal(t, state.InterruptExitCode, code)
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt handler did not exit")
	}
	assert.Equal(t, int32(1), closes.Load(), "closers run once")
	assert.FileExists(t, statePath)
}

func TestAppRun_ReturnsFnError(t *testing.T) {
	a := &app{
		env:   &env{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		owner: state.NewOwner(state.New(nil), filepath.Join(t.TempDir(), "state.json")),
	}
	boom := errors.New("boom")

	err := a.run(context.Background(), func(int) { t.Error("exit must not be called") }, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
