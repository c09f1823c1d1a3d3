package liteq

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/unkloud/liteq/internal"
)

const (
	stopped = iota
	started
)

var (
	// ErrDoubleStarted is returned when Start is called on a Runner that
	// has already been started.
	ErrDoubleStarted = errors.New("liteq: runner double start")

	// ErrDoubleStopped is returned when Stop is called on a Runner that
	// is not currently running.
	ErrDoubleStopped = errors.New("liteq: runner double stop")

	// ErrStopTimeout is returned when a Runner fails to shut down within
	// the provided timeout during Stop. The runner may still be
	// terminating in the background.
	ErrStopTimeout = errors.New("liteq: runner stop timeout")
)

// lcBase is the shared Start/Stop lifecycle guard used by Runner.
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
