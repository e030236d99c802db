// sim/orchestrator.go
//
// Wires arrivals, the chosen fairness Scheduler, OIT, and the engine
// together into the tick loop described in §4.4. Grounded on the
// teacher's simulator.go event-loop shape (a Run method driving Step
// until a termination condition, with logrus tick logging) and on
// original_source/simulator.py for the exact per-tick algorithm.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Orchestrator owns current_tick, the wait queue, the interaction map,
// and the terminal request sets (completed, throttled). It is the only
// component that mutates both the wait queue and the interaction map.
type Orchestrator struct {
	Scheduler Scheduler
	OIT       *OIT
	Engine    *Engine

	MaxBatch int
	MaxTicks int64

	CurrentTick int64

	waiting      *WaitQueue
	interactions map[int64]*Interaction

	completedRequests []*Request
	throttledRequests []*Request

	idToRequest     map[int64]*Request
	accountedPrefill map[int64]bool
}

// NewOrchestrator constructs an Orchestrator from a RunConfig.
func NewOrchestrator(cfg RunConfig) *Orchestrator {
	return &Orchestrator{
		Scheduler:        cfg.NewScheduler(),
		OIT:              cfg.NewOIT(),
		Engine:           NewEngine(cfg.Engine),
		MaxBatch:         cfg.Engine.MaxNumBatchedTokens,
		MaxTicks:         cfg.MaxTicks,
		waiting:          &WaitQueue{},
		interactions:     map[int64]*Interaction{},
		idToRequest:      map[int64]*Request{},
		accountedPrefill: map[int64]bool{},
	}
}

// SubmitInteraction registers a new Interaction and admits its first stage
// request into the waiting queue.
func (o *Orchestrator) SubmitInteraction(inter *Interaction) {
	o.interactions[inter.ID] = inter
	if req := inter.NextRequest(); req != nil {
		o.acceptRequest(req)
	}
}

func (o *Orchestrator) acceptRequest(req *Request) {
	if _, dup := o.idToRequest[req.ID]; dup {
		panic(fmt.Sprintf("sim: duplicate request id %d", req.ID))
	}
	o.Scheduler.OnRequestArrival(req)
	o.waiting.Enqueue(req)
	o.idToRequest[req.ID] = req
}

// InjectRequests offers a batch of new arrivals to OIT, accepting
// survivors into the waiting queue and throttling the rest.
func (o *Orchestrator) InjectRequests(requests []*Request) {
	for _, req := range requests {
		snapshot := o.Engine.Snapshot()
		if o.OIT != nil {
			if o.OIT.ShouldThrottle(req, snapshot.KVTokensUsed, snapshot.NumActiveDecodes) {
				o.OIT.Throttle(req)
				o.throttledRequests = append(o.throttledRequests, req)
				continue
			}
			o.OIT.RecordArrival(req)
		}
		o.acceptRequest(req)
	}
}

func (o *Orchestrator) admitToEngine() {
	snapshot := o.Engine.Snapshot()
	selected := o.Scheduler.SelectNextRequests(o.waiting, o.interactions, snapshot, o.MaxBatch)
	for _, req := range selected {
		o.Engine.Submit(req)
	}
}

func (o *Orchestrator) processEvents(events []Event) {
	var decodeServed []*Request
	for _, ev := range events {
		req := o.idToRequest[ev.RequestID]
		if req == nil {
			continue
		}
		if ev.Type == EventPrefillChunkStarted && ev.ChunkID == 0 && !o.accountedPrefill[req.ID] {
			o.Scheduler.OnPrefillAdded(req)
			o.accountedPrefill[req.ID] = true
		}
		if ev.Type == EventDecodeStep {
			decodeServed = append(decodeServed, req)
		}
		if ev.Type == EventRequestCompleted {
			ct := ev.Time
			req.CompletionTime = &ct
			o.completedRequests = append(o.completedRequests, req)
			if inter := o.interactions[req.InteractionID]; inter != nil {
				inter.MarkStageComplete()
				if next := inter.NextRequest(); next != nil {
					next.ArrivalTime = int64(ev.Time)
					o.acceptRequest(next)
				}
			}
		}
	}
	if len(decodeServed) > 0 {
		o.Scheduler.OnDecodeIteration(decodeServed)
	}
}

// Step advances the orchestrator by one tick: admit requests to the
// engine, step the engine once, process its events, then advance
// CurrentTick.
func (o *Orchestrator) Step() {
	o.admitToEngine()
	events := o.Engine.Step()
	if len(events) > 0 {
		o.processEvents(events)
	}
	o.CurrentTick++
}

// running reports whether the simulation has any work left: requests
// waiting, the engine with pending work, or an interaction not yet
// complete.
func (o *Orchestrator) running() bool {
	if o.waiting.Len() > 0 {
		return true
	}
	if o.Engine.HasPendingWork() {
		return true
	}
	for _, inter := range o.interactions {
		if !inter.Complete {
			return true
		}
	}
	return false
}

// Run drives Step until MaxTicks is reached or no work remains, then
// accounts still-waiting requests as wasted tokens.
func (o *Orchestrator) Run() {
	for o.CurrentTick < o.MaxTicks && o.running() {
		o.Step()
		if o.CurrentTick%1000 == 0 {
			logrus.Debugf("[tick %07d] waiting=%d completed=%d throttled=%d",
				o.CurrentTick, o.waiting.Len(), len(o.completedRequests), len(o.throttledRequests))
		}
	}
	wasted := 0
	for _, req := range o.waiting.Snapshot() {
		req.Stalled = true
		wasted += req.InputTokens + req.SystemTokens + req.RemainingDecode
	}
	logrus.Infof("[tick %07d] simulation ended: completed=%d throttled=%d wasted_tokens=%d",
		o.CurrentTick, len(o.completedRequests), len(o.throttledRequests), wasted)
}

// Metrics gathers the final metrics record per §6.
func (o *Orchestrator) Metrics() Metrics {
	return GatherMetrics(o.completedRequests, o.waiting.Snapshot(), len(o.throttledRequests))
}
