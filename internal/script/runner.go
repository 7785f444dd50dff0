package script

import (
	"sync"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/internal/metrics"
)

// Runner drives queued invocations with a fixed pool of workers. Each
// worker executes one step then requeues the invocation, interleaving
// pending scripts instead of running any one to completion. Cancellation
// is passive: an invocation past its deadline is simply never stepped
// again.
type Runner struct {
	queue   chan *Invocation
	quit    chan struct{}
	workers int
	wg      sync.WaitGroup
	stop    sync.Once
}

func NewRunner(workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Runner{
		queue:   make(chan *Invocation, queueSize),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
}

// Stop refuses further submissions, lets workers finish the queued and
// in-flight invocations, and waits for them to exit. The queue channel is
// never closed: workers requeue mid-flight invocations on it during the
// drain, and a close would turn those sends into panics.
func (r *Runner) Stop() {
	r.stop.Do(func() {
		close(r.quit)
	})
	r.wg.Wait()
}

// Enqueue submits an invocation for stepping. Returns false when the
// runner is stopping or the queue is saturated; the caller decides how to
// report it.
func (r *Runner) Enqueue(inv *Invocation) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.queue <- inv:
		return true
	default:
		return false
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for {
		select {
		case inv := <-r.queue:
			r.process(inv)
		case <-r.quit:
			// Drain what remains, including steps this loop requeues.
			for {
				select {
				case inv := <-r.queue:
					r.process(inv)
				default:
					return
				}
			}
		}
	}
}

// process runs one step and requeues the invocation when work remains.
// The requeue bypasses Enqueue's quit check so mid-flight scripts still
// finish during a drain.
func (r *Runner) process(inv *Invocation) {
	if time.Now().After(inv.Deadline()) {
		logging.Warn("script cancelled in guild %s: exceeded %s budget", inv.guildID, inv.budget)
		metrics.Get().ScriptCancelled()
		return
	}

	if inv.Step() {
		select {
		case r.queue <- inv:
		default:
			logging.Warn("script cancelled in guild %s: queue saturated", inv.guildID)
			metrics.Get().ScriptCancelled()
		}
		return
	}

	if !inv.failed {
		metrics.Get().ScriptCompleted()
	}
}
