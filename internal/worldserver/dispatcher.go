package worldserver

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrDispatcherStopped is returned when work is submitted after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

const defaultQueueSize = 256

// Dispatcher serializes every world mutation onto a single goroutine. The
// websocket layer enqueues inbound events; the admin HTTP layer runs
// synchronously through Do. Because all Controller calls funnel through
// here, the controller needs no locking of its own.
type Dispatcher struct {
	logger        *zap.Logger
	queue         chan func()
	stop          chan struct{}
	stopped       chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
	sweepInterval time.Duration
	sweep         func()
}

// NewDispatcher creates a Dispatcher. sweep is run every sweepInterval on
// the dispatch goroutine; pass a non-positive interval or nil func to
// disable sweeping.
func NewDispatcher(logger *zap.Logger, sweepInterval time.Duration, sweep func()) *Dispatcher {
	return &Dispatcher{
		logger:        logger,
		queue:         make(chan func(), defaultQueueSize),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
		sweepInterval: sweepInterval,
		sweep:         sweep,
	}
}

// Start runs the dispatch loop until Stop is called. It drains the pending
// queue before returning so enqueued work is never silently lost.
//
// Start blocks; run it under the server lifecycle.
func (d *Dispatcher) Start() error {
	d.started.Store(true)
	defer close(d.stopped)

	var tick <-chan time.Time
	if d.sweepInterval > 0 && d.sweep != nil {
		ticker := time.NewTicker(d.sweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	d.logger.Info("dispatcher started",
		zap.Duration("sweep_interval", d.sweepInterval))

	for {
		select {
		case <-d.stop:
			for {
				select {
				case fn := <-d.queue:
					fn()
				default:
					d.logger.Info("dispatcher stopped")
					return nil
				}
			}
		case fn := <-d.queue:
			fn()
		case <-tick:
			d.sweep()
		}
	}
}

// Stop shuts the dispatch loop down and waits for it to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	if d.started.Load() {
		<-d.stopped
	}
}

// Enqueue submits work to the dispatch goroutine without waiting for it.
//
// Postcondition: Returns ErrDispatcherStopped after Stop; the work is then
// not run.
func (d *Dispatcher) Enqueue(fn func()) error {
	select {
	case <-d.stop:
		return ErrDispatcherStopped
	default:
	}
	select {
	case d.queue <- fn:
		return nil
	case <-d.stop:
		return ErrDispatcherStopped
	}
}

// Do runs fn on the dispatch goroutine and waits for it to finish.
func (d *Dispatcher) Do(fn func()) error {
	done := make(chan struct{})
	if err := d.Enqueue(func() {
		fn()
		close(done)
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-d.stopped:
		// The drain may still have run it.
		select {
		case <-done:
			return nil
		default:
			return ErrDispatcherStopped
		}
	}
}
