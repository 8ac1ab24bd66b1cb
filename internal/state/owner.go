package state

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptExitCode is the exit status used when a run is interrupted.
const InterruptExitCode = 130

// Owner is the single party responsible for writing the state back to disk.
// Flush runs at most once no matter how many times it is triggered.
type Owner struct {
	state *State
	path  string

	once sync.Once
	err  error
}

// NewOwner returns an owner that flushes s to path.
func NewOwner(s *State, path string) *Owner {
	return &Owner{state: s, path: path}
}

// State returns the owned state.
func (o *Owner) State() *State {
	return o.state
}

// Flush persists the state. Only the first call writes; later calls return
// the first call's result.
func (o *Owner) Flush() error {
	o.once.Do(func() {
		o.err = o.state.Save(o.path)
	})
	return o.err
}

// Watch returns a context cancelled on SIGINT or SIGTERM. On the first
// signal the state is flushed and exit is called with InterruptExitCode.
// The returned stop function releases the signal handler.
func (o *Owner) Watch(ctx context.Context, exit func(code int)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancel()
			_ = o.Flush()
			exit(InterruptExitCode)
		case <-done:
		}
	}()

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			signal.Stop(sigs)
			close(done)
			cancel()
		})
	}
	return ctx, stop
}
