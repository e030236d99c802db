// sim/engine.go
//
// Implements the continuous-batching engine: decode-maximal per-step token
// budgeting with single-in-flight chunked prefill, and simple integer
// KV-token accounting. Mirrors vLLM-style continuous batching the way the
// teacher's simulator.go does, simplified to the spec's token-counter model
// (no block allocation, no prefix caching — the spec's KV cache is a plain
// capacity counter, not a paged allocator).

package sim

// EngineConfig groups the continuous-batching engine's tunable parameters.
type EngineConfig struct {
	MaxKVTokens         int // capacity
	MaxNumBatchedTokens int // per-step token budget
	ChunkSize           int

	// Prefill cost for a chunk of length L: AP*L^2 + BP*L + CP.
	AP, BP, CP float64
	// Decode cost for a batch of `batch` served tokens, at current KV
	// usage `kv`: AD*kv*batch + BD.
	AD, BD float64
}

// DefaultEngineConfig returns the engine parameters the original FAIRSERVE
// prototype uses by default.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxKVTokens:         20000,
		MaxNumBatchedTokens: 16,
		ChunkSize:           256,
		AP:                  0.0001,
		BP:                  0.01,
		CP:                  0.1,
		AD:                  0.00005,
		BD:                  0.05,
	}
}

// activePrefill tracks the single request currently undergoing chunked
// prefill, and how many of its input+system tokens remain to be chunked.
type activePrefill struct {
	req       *Request
	remaining int
	chunkID   int
}

// Engine is the continuous-batching engine described in spec §4.1. The
// outer scheduler never sees these fields directly — only Snapshot.
type Engine struct {
	cfg EngineConfig

	time float64

	pendingPrefill []*Request // FIFO; head may block behind insufficient KV capacity
	activePrefill  *activePrefill
	activeDecodes  []*Request
	completed      []*Request

	kvTokens int
}

// NewEngine constructs an Engine from its configuration.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// EngineSnapshot is an immutable view of engine state, the only state the
// outer fairness layer is allowed to see.
type EngineSnapshot struct {
	Time                 float64
	NumActiveDecodes     int
	HasActivePrefill     bool
	KVTokensUsed         int
	KVTokensCapacity     int
	NumPendingPrefills   int
	NumCompletedRequests int
}

// Submit queues a request for prefill. No admission check happens here —
// capacity is enforced inside Step; an oversized request simply waits at
// the head of pendingPrefill until KV frees up (the engine never rejects
// on capacity, per §4.1).
func (e *Engine) Submit(req *Request) {
	e.pendingPrefill = append(e.pendingPrefill, req)
}

// HasPendingWork reports whether any request is pending prefill, in-flight
// prefill, or in active decode.
func (e *Engine) HasPendingWork() bool {
	return len(e.pendingPrefill) > 0 || e.activePrefill != nil || len(e.activeDecodes) > 0
}

// Snapshot returns the engine's current state snapshot.
func (e *Engine) Snapshot() EngineSnapshot {
	active := 0
	for _, r := range e.activeDecodes {
		if r.RemainingDecode > 0 {
			active++
		}
	}
	return EngineSnapshot{
		Time:                 e.time,
		NumActiveDecodes:     active,
		HasActivePrefill:     e.activePrefill != nil,
		KVTokensUsed:         e.kvTokens,
		KVTokensCapacity:     e.cfg.MaxKVTokens,
		NumPendingPrefills:   len(e.pendingPrefill),
		NumCompletedRequests: len(e.completed),
	}
}

func (e *Engine) prefillCost(chunkLen int) float64 {
	l := float64(chunkLen)
	return e.cfg.AP*l*l + e.cfg.BP*l + e.cfg.CP
}

func (e *Engine) decodeCost(batchTokens int) float64 {
	return e.cfg.AD*float64(e.kvTokens)*float64(batchTokens) + e.cfg.BD
}

// Step advances the engine by one step: decode phase, then (budget
// permitting) one prefill chunk, then completion handling, then time
// advance. Returns the events emitted in this step, in emission order:
// decode events, then prefill-start/finish events, then completion events.
func (e *Engine) Step() []Event {
	var events []Event
	budget := e.cfg.MaxNumBatchedTokens

	// 1. Decode phase: serve the prefix of active decodes with remaining
	// work, up to the token budget. Decodes always preempt prefill.
	var decodeCandidates []*Request
	for _, r := range e.activeDecodes {
		if r.RemainingDecode > 0 {
			decodeCandidates = append(decodeCandidates, r)
		}
	}
	batchTokens := 0
	if len(decodeCandidates) > 0 && budget > 0 {
		take := len(decodeCandidates)
		if take > budget {
			take = budget
		}
		selected := decodeCandidates[:take]
		batchTokens = len(selected)
		for _, r := range selected {
			r.RemainingDecode--
			e.kvTokens++
			events = append(events, Event{
				Type:       EventDecodeStep,
				Time:       e.time,
				RequestID:  r.ID,
				TokenIndex: r.OutputTokensTarget - r.RemainingDecode,
			})
		}
		budget -= batchTokens
	}
	var decodeCost float64
	if batchTokens > 0 {
		decodeCost = e.decodeCost(batchTokens)
	}

	// 2. Prefill phase: admit a new candidate into activePrefill if none is
	// in flight, then advance activePrefill by one chunk if budget remains.
	var prefillCost float64
	if budget > 0 {
		_, prefillCost = e.maybeAdvancePrefill(budget, &events)
	}

	// 3. Completions: any active decode that has reached zero remaining
	// output completes now, stamped with the time the last token finished.
	remaining := e.activeDecodes[:0:0]
	for _, r := range e.activeDecodes {
		if r.RemainingDecode <= 0 {
			events = append(events, Event{
				Type:      EventRequestCompleted,
				Time:      e.time + decodeCost + prefillCost,
				RequestID: r.ID,
			})
			e.completed = append(e.completed, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	e.activeDecodes = remaining

	// 4. Time advance: only if any work happened this step.
	timeAdvance := decodeCost + prefillCost
	if timeAdvance == 0 && len(events) == 0 {
		return nil
	}
	if timeAdvance < 1e-4 {
		timeAdvance = 1e-4
	}
	e.time += timeAdvance
	return events
}

// maybeAdvancePrefill admits a new candidate into activePrefill (if none is
// in flight and KV capacity allows its full footprint), then advances
// activePrefill by one chunk if the token budget allows. Returns the chunk
// length consumed (0 if nothing happened) and its prefill cost. Appends any
// PrefillChunkStarted/Finished events to *events.
func (e *Engine) maybeAdvancePrefill(tokenBudget int, events *[]Event) (int, float64) {
	if e.activePrefill == nil && len(e.pendingPrefill) > 0 {
		candidate := e.pendingPrefill[0]
		remaining := candidate.InputTokens + candidate.SystemTokens
		chunkLen := min3(e.cfg.ChunkSize, remaining, tokenBudget)
		if chunkLen <= 0 {
			return 0, 0
		}
		if e.kvTokens+remaining > e.cfg.MaxKVTokens {
			// Stays at the head of pendingPrefill — no reordering.
			return 0, 0
		}
		e.pendingPrefill = e.pendingPrefill[1:]
		e.activePrefill = &activePrefill{req: candidate, remaining: remaining}
	}
	if e.activePrefill == nil {
		return 0, 0
	}

	chunkLen := min3(e.cfg.ChunkSize, e.activePrefill.remaining, tokenBudget)
	if chunkLen <= 0 {
		return 0, 0
	}
	req := e.activePrefill.req
	chunkID := e.activePrefill.chunkID

	*events = append(*events, Event{
		Type:      EventPrefillChunkStarted,
		Time:      e.time,
		RequestID: req.ID,
		ChunkID:   chunkID,
		ChunkLen:  chunkLen,
	})
	e.activePrefill.remaining -= chunkLen
	e.activePrefill.chunkID++
	cost := e.prefillCost(chunkLen)
	*events = append(*events, Event{
		Type:      EventPrefillChunkFinished,
		Time:      e.time + cost,
		RequestID: req.ID,
		ChunkID:   chunkID,
		ChunkLen:  chunkLen,
	})
	e.kvTokens += chunkLen
	if req.StartTime == nil {
		t := int64(e.time)
		req.StartTime = &t
	}
	if e.activePrefill.remaining <= 0 {
		e.activePrefill = nil
		e.activeDecodes = append(e.activeDecodes, req)
	}
	return chunkLen, cost
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
