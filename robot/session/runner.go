package session

import (
	"context"
	"errors"
	"time"

	"github.com/maca/robotgrid/robot/engine"
)

// ErrRunnerStopped is returned for submissions after the runner shut down.
var ErrRunnerStopped = errors.New("session runner stopped")

// Runner owns one robot and processes its two event streams: discrete
// input submissions and the periodic animation tick. Events are handled
// one at a time to completion; the tick source is armed only while the
// machine subscribes to ticks, and raw directional keys are dropped while
// it does not subscribe to raw keys. Every transition is pushed to the
// change listener.
type Runner struct {
	robot    *engine.Robot
	events   chan submission
	onChange func(engine.Snapshot)

	cancel context.CancelFunc
	done   chan struct{}
}

type submission struct {
	ev       engine.Event // nil for reads
	raw      bool
	reset    bool
	reply    chan result
	logReply chan []engine.EventRecord
}

type result struct {
	snap     engine.Snapshot
	accepted bool
}

// NewRunner creates a runner for the given robot. The change listener may
// be nil; it is invoked from the runner goroutine after every transition
// that alters the model, so it must not block.
func NewRunner(robot *engine.Robot, onChange func(engine.Snapshot)) *Runner {
	return &Runner{
		robot:    robot,
		events:   make(chan submission),
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

// Start launches the runner goroutine.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

// Stop shuts the runner down and waits for the loop to exit. Stopping a
// runner that was never started is a no-op.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	interval := time.Duration(r.robot.Config().TickIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = engine.DefaultTickIntervalMs * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	ticker.Stop()
	armed := false
	defer ticker.Stop()

	// Arm or disarm the tick source to match the machine's current
	// subscriptions. A stale tick left in the channel after a stop is
	// harmless: ticks are no-ops on an idle machine.
	rearm := func() {
		subs := r.robot.Subscriptions()
		switch {
		case subs.Ticks && !armed:
			ticker.Reset(interval)
			armed = true
		case !subs.Ticks && armed:
			ticker.Stop()
			armed = false
		}
	}
	rearm()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-r.events:
			prev := r.robot.Model()
			accepted := true
			switch {
			case sub.reset:
				r.robot.Reset()
			case sub.ev == nil:
				// read only
			case sub.raw && !r.inputAllowed(sub.ev):
				// raw key-down while the machine is not listening
				accepted = false
			default:
				r.robot.Dispatch(sub.ev)
			}
			rearm()
			snap := r.robot.Snapshot()
			if r.onChange != nil && r.robot.Model() != prev {
				r.onChange(snap)
			}
			if sub.reply != nil {
				sub.reply <- result{snap: snap, accepted: accepted}
			}
			if sub.logReply != nil {
				log := r.robot.EventLog()
				out := make([]engine.EventRecord, len(log))
				copy(out, log)
				sub.logReply <- out
			}

		case t := <-ticker.C:
			prev := r.robot.Model()
			r.robot.Dispatch(engine.Tick{TimeMs: t.UnixMilli()})
			rearm()
			if r.onChange != nil && r.robot.Model() != prev {
				r.onChange(r.robot.Snapshot())
			}
		}
	}
}

// inputAllowed reports whether a raw-keyboard event may reach the machine
// in its current state. Only directional inputs are gated; toggle and
// interrupt are always-active listeners.
func (r *Runner) inputAllowed(ev engine.Event) bool {
	if _, isInput := ev.(engine.Input); !isInput {
		return true
	}
	return r.robot.Subscriptions().RawKeys
}

// Submit applies an event from an always-active source.
func (r *Runner) Submit(ctx context.Context, ev engine.Event) (engine.Snapshot, error) {
	res, err := r.send(ctx, submission{ev: ev})
	return res.snap, err
}

// SubmitRaw applies an event from the raw keyboard listener, honoring the
// machine's raw-keys subscription. The bool reports whether the event
// reached the machine.
func (r *Runner) SubmitRaw(ctx context.Context, ev engine.Event) (engine.Snapshot, bool, error) {
	res, err := r.send(ctx, submission{ev: ev, raw: true})
	return res.snap, res.accepted, err
}

// Snapshot reads the current state.
func (r *Runner) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	res, err := r.send(ctx, submission{})
	return res.snap, err
}

// Reset restores the board's initial model.
func (r *Runner) Reset(ctx context.Context) (engine.Snapshot, error) {
	res, err := r.send(ctx, submission{reset: true})
	return res.snap, err
}

// EventLog reads the recorded transitions. The copy is taken on the
// runner goroutine so readers never race with dispatches.
func (r *Runner) EventLog(ctx context.Context) ([]engine.EventRecord, error) {
	sub := submission{logReply: make(chan []engine.EventRecord, 1)}
	select {
	case r.events <- sub:
	case <-r.done:
		return nil, ErrRunnerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case log := <-sub.logReply:
		return log, nil
	case <-r.done:
		return nil, ErrRunnerStopped
	}
}

func (r *Runner) send(ctx context.Context, sub submission) (result, error) {
	sub.reply = make(chan result, 1)
	select {
	case r.events <- sub:
	case <-r.done:
		return result{}, ErrRunnerStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-sub.reply:
		return res, nil
	case <-r.done:
		return result{}, ErrRunnerStopped
	}
}
