package metrics

import (
	"fmt"
	"sync/atomic"
)

// Registry tracks counters for the event pipeline. All counters are
// monotonic and safe for concurrent use.
type Registry struct {
	eventsRouted     atomic.Uint64
	eventsSuppressed atomic.Uint64
	eventsUnknown    atomic.Uint64
	deliveries       atomic.Uint64
	deliveryFailures atomic.Uint64
	scriptsStarted   atomic.Uint64
	scriptsCompleted atomic.Uint64
	scriptsCancelled atomic.Uint64
	scriptsFailed    atomic.Uint64
}

var globalRegistry = &Registry{}

// Get returns the process-wide registry.
func Get() *Registry {
	return globalRegistry
}

func (r *Registry) EventRouted()     { r.eventsRouted.Add(1) }
func (r *Registry) EventSuppressed() { r.eventsSuppressed.Add(1) }
func (r *Registry) EventUnknown()    { r.eventsUnknown.Add(1) }
func (r *Registry) Delivery()        { r.deliveries.Add(1) }
func (r *Registry) DeliveryFailure() { r.deliveryFailures.Add(1) }
func (r *Registry) ScriptStarted()   { r.scriptsStarted.Add(1) }
func (r *Registry) ScriptCompleted() { r.scriptsCompleted.Add(1) }
func (r *Registry) ScriptCancelled() { r.scriptsCancelled.Add(1) }
func (r *Registry) ScriptFailed()    { r.scriptsFailed.Add(1) }

// Export renders the counters as newline-separated name/value pairs.
func (r *Registry) Export() string {
	return fmt.Sprintf(
		"events_routed %d\nevents_suppressed %d\nevents_unknown %d\ndeliveries %d\ndelivery_failures %d\nscripts_started %d\nscripts_completed %d\nscripts_cancelled %d\nscripts_failed %d\n",
		r.eventsRouted.Load(),
		r.eventsSuppressed.Load(),
		r.eventsUnknown.Load(),
		r.deliveries.Load(),
		r.deliveryFailures.Load(),
		r.scriptsStarted.Load(),
		r.scriptsCompleted.Load(),
		r.scriptsCancelled.Load(),
		r.scriptsFailed.Load(),
	)
}
