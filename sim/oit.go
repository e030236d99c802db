// sim/oit.go
//
// Implements the Overload & Interaction-aware Throttle: an arrival-time
// admission gate that rejects only *new* interactions, and only while the
// engine is overloaded, bounded by per-user and per-app RPM limits over a
// sliding window. Grounded on original_source/oit.py and adapted to the
// teacher's admission.go factory idiom (admission.go's cluster-routing
// AdmissionPolicy interface has no analogue here — OIT is a single
// concrete type, not a pluggable policy family).

package sim

// OIT is the stage-0-only overload throttle described in §4.3.
type OIT struct {
	Window      int64
	KVThreshold int
	MaxBatch    int

	userWindows map[string][]int64
	appWindows  map[string][]int64
	Throttled   int
}

// NewOIT constructs an OIT with the given sliding-window length (seconds of
// simulated arrival time), KV overload threshold, and batch-size overload
// threshold.
func NewOIT(window int64, kvThreshold, maxBatch int) *OIT {
	return &OIT{
		Window:      window,
		KVThreshold: kvThreshold,
		MaxBatch:    maxBatch,
		userWindows: map[string][]int64{},
		appWindows:  map[string][]int64{},
	}
}

func evict(dq []int64, now int64, window int64) []int64 {
	i := 0
	for i < len(dq) && dq[i] <= now-window {
		i++
	}
	return dq[i:]
}

// RecordArrival appends the request's arrival time to both its user's and
// application's sliding windows. The orchestrator calls it for every
// injected arrival that is not throttled, whatever its stage.
func (o *OIT) RecordArrival(req *Request) {
	o.userWindows[req.User.ID] = append(o.userWindows[req.User.ID], req.ArrivalTime)
	o.appWindows[req.Application.ID] = append(o.appWindows[req.Application.ID], req.ArrivalTime)
}

// IsOverloaded reports whether the engine is currently overloaded: KV usage
// above threshold, or the running batch at or above its cap.
func (o *OIT) IsOverloaded(kvUsage, running int) bool {
	return kvUsage > o.KVThreshold || running >= o.MaxBatch
}

// ShouldThrottle decides whether req should be rejected. Continuations
// (stage != StageUserPrompt) are never throttled regardless of load — the
// contract is stage-0 only.
func (o *OIT) ShouldThrottle(req *Request, kvUsage, running int) bool {
	o.userWindows[req.User.ID] = evict(o.userWindows[req.User.ID], req.ArrivalTime, o.Window)
	o.appWindows[req.Application.ID] = evict(o.appWindows[req.Application.ID], req.ArrivalTime, o.Window)

	if !o.IsOverloaded(kvUsage, running) {
		return false
	}
	if req.Stage != StageUserPrompt {
		return false
	}
	if len(o.userWindows[req.User.ID]) >= req.Application.UserRPMLimit {
		return true
	}
	if len(o.appWindows[req.Application.ID]) >= req.Application.AppRPMLimit {
		return true
	}
	return false
}

// Throttle marks req as rejected and increments the throttle counter.
func (o *OIT) Throttle(req *Request) {
	req.Throttled = true
	o.Throttled++
}
