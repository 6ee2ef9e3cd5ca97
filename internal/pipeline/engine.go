package pipeline

import (
	"context"
	"sync"
	"time"
)

// Engine drives a Pipeline from a single goroutine. Samples and start requests
// arrive from other goroutines through channels; outputs fan out to sinks.
type Engine struct {
	p          *Pipeline
	sinks      []Sink
	staleAfter time.Duration

	sampleCh chan Sample
	startCh  chan chan bool

	mu      sync.RWMutex
	last    Output
	dropped uint64
}

// NewEngine wraps p. A watchdog injects an invalid sample when no input has
// arrived for staleAfter; zero disables it.
func NewEngine(p *Pipeline, staleAfter time.Duration, sinks ...Sink) *Engine {
	return &Engine{
		p:          p,
		sinks:      sinks,
		staleAfter: staleAfter,
		sampleCh:   make(chan Sample, 64),
		startCh:    make(chan chan bool, 1),
		last:       p.Last(),
	}
}

// Submit queues a sample. It never blocks; samples are dropped when the
// engine falls behind.
func (e *Engine) Submit(s Sample) bool {
	select {
	case e.sampleCh <- s:
		return true
	default:
		e.mu.Lock()
		e.dropped++
		e.mu.Unlock()
		return false
	}
}

// RequestStart asks the engine to open the start gate and waits for the answer.
func (e *Engine) RequestStart(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case e.startCh <- reply:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Last returns the most recent output.
func (e *Engine) Last() Output {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Config returns the profile being run.
func (e *Engine) Config() Config { return e.p.Config() }

// Dropped returns how many samples Submit discarded.
func (e *Engine) Dropped() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dropped
}

// Run processes samples until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	var stale <-chan time.Time
	var timer *time.Timer
	if e.staleAfter > 0 {
		timer = time.NewTimer(e.staleAfter)
		defer timer.Stop()
		stale = timer.C
	}
	rearm := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.staleAfter)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case reply := <-e.startCh:
			ok := e.p.Start()
			if ok {
				e.publish(e.p.Last())
			}
			reply <- ok
		case s := <-e.sampleCh:
			e.publish(e.p.Tick(s))
			rearm()
		case <-stale:
			// No input: treat it as a lost detection until a sample arrives.
			if e.p.Last().Tracking || e.p.cfg.GateEnabled {
				e.publish(e.p.Tick(Invalid))
			}
			timer.Reset(e.staleAfter)
		}
	}
}

func (e *Engine) publish(out Output) {
	out.Started = e.p.Started()
	e.mu.Lock()
	e.last = out
	e.mu.Unlock()
	for _, s := range e.sinks {
		s.Apply(out)
	}
}
