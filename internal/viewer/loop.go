package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/kolkturm/ktviewer/internal/debug"
)

// ErrStopped is returned when a command is sent to a loop that has exited.
var ErrStopped = errors.New("viewer loop stopped")

type command struct {
	fn     func(*Engine) error
	reply  chan error
	mutate bool
}

// Loop is the single goroutine allowed to touch an Engine. Commands and
// animation ticks are serialised, so an input that cancels an animation is
// always seen by the next tick.
type Loop struct {
	engine   *Engine
	interval time.Duration
	cmds     chan command
	done     chan struct{}
	onChange func(*Engine)
}

// NewLoop wraps e. interval <= 0 selects 50ms.
func NewLoop(e *Engine, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Loop{
		engine:   e,
		interval: interval,
		cmds:     make(chan command),
		done:     make(chan struct{}),
	}
}

// OnChange registers a callback run on the loop goroutine after every tick
// or command that may have changed the frame. Set it before Run.
func (l *Loop) OnChange(fn func(*Engine)) {
	l.onChange = fn
}

// Run processes commands and ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	debug.Verbose("Viewer loop started (tick %v)", l.interval)
	for {
		select {
		case <-ctx.Done():
			debug.Verbose("Viewer loop stopped")
			return nil
		case cmd := <-l.cmds:
			err := cmd.fn(l.engine)
			cmd.reply <- err
			if err == nil && cmd.mutate {
				l.changed()
			}
		case <-ticker.C:
			if l.engine.Tick() {
				debug.Trace("tick")
				l.changed()
			}
		}
	}
}

func (l *Loop) changed() {
	if l.onChange != nil {
		l.onChange(l.engine)
	}
}

// Do runs fn on the loop goroutine and waits for its result. A nil result
// triggers the change callback.
func (l *Loop) Do(ctx context.Context, fn func(*Engine) error) error {
	return l.send(ctx, command{fn: fn, reply: make(chan error, 1), mutate: true})
}

// View runs a read-only fn on the loop goroutine.
func (l *Loop) View(ctx context.Context, fn func(*Engine) error) error {
	return l.send(ctx, command{fn: fn, reply: make(chan error, 1)})
}

func (l *Loop) send(ctx context.Context, cmd command) error {
	select {
	case l.cmds <- cmd:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch applies an input event and returns the resulting state.
// The snapshot travels through a buffered channel so a caller that gives up
// on ctx never shares memory with the loop goroutine.
func (l *Loop) Dispatch(ctx context.Context, in Input) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	err := l.Do(ctx, func(e *Engine) error {
		if err := e.Dispatch(in); err != nil {
			return err
		}
		out <- e.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return <-out, nil
}

// Snapshot returns the current state.
func (l *Loop) Snapshot(ctx context.Context) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	err := l.View(ctx, func(e *Engine) error {
		out <- e.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return <-out, nil
}
