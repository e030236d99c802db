package sim

import "testing"

func singleStageInteraction(id int64, userID string, input, system, output int) *Interaction {
	user := NewUser(userID)
	app := NewApplication("app")
	req := NewRequest(id, user, app, id, StageUserPrompt, input, system, output, 0)
	return NewInteraction(id, []*Request{req})
}

// Scenario 1: VTC two-user fairness.
func TestOrchestrator_VTCTwoUserFairness(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.SchedulerName = "vtc"
	cfg.Engine.MaxKVTokens = 200
	cfg.Engine.MaxNumBatchedTokens = 1
	cfg.MaxTicks = 50
	cfg.OIT.KVThreshold = 1 << 30
	cfg.OIT.MaxBatch = 1 << 30

	o := NewOrchestrator(cfg)
	o.SubmitInteraction(singleStageInteraction(1, "a", 10, 2, 5))
	o.SubmitInteraction(singleStageInteraction(2, "b", 10, 2, 5))
	o.Run()

	m := o.Metrics()
	if m.Completed != 2 {
		t.Fatalf("Completed = %d, want 2", m.Completed)
	}
	vtc := o.Scheduler.(*VTCScheduler)
	diff := vtc.counter("a") - vtc.counter("b")
	if diff < 0 {
		diff = -diff
	}
	// One per-request increment for this config is Wq*output + Wp*(input+system).
	maxIncrement := vtc.Wq*float64(5) + vtc.Wp*float64(12)
	if diff > maxIncrement {
		t.Errorf("|C[a]-C[b]| = %v, want <= %v", diff, maxIncrement)
	}
}

// Scenario 3: OIT never throttles mid-interaction, even under perpetual overload.
func TestOrchestrator_OITNeverThrottlesMidInteraction(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.OIT.KVThreshold = 1
	cfg.OIT.MaxBatch = 1
	cfg.MaxTicks = 500
	o := NewOrchestrator(cfg)
	o.OIT = NewOIT(60, 1, 1) // perpetual overload

	user := NewUser("a")
	app := NewApplication("app")
	app.UserRPMLimit = 1
	r1 := NewRequest(1, user, app, 1, StageUserPrompt, 10, 0, 5, 0)
	r2 := NewRequest(2, user, app, 1, StageAgent1, 10, 0, 5, 0)
	inter := NewInteraction(1, []*Request{r1, r2})
	o.SubmitInteraction(inter)
	o.Run()

	m := o.Metrics()
	if m.Throttled != 0 {
		t.Errorf("Throttled = %d, want 0", m.Throttled)
	}
	if m.Completed != 2 {
		t.Errorf("Completed = %d, want 2 (both stages)", m.Completed)
	}
}

// Scenario 4: decode preempts prefill within a single engine step.
func TestEngine_DecodePreemptsPrefill(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxNumBatchedTokens = 64
	e := NewEngine(cfg)

	decoding := NewRequest(1, NewUser("a"), NewApplication("app"), 1, StageUserPrompt, 5, 0, 3, 0)
	decoding.RemainingDecode = 1
	e.activeDecodes = append(e.activeDecodes, decoding)

	newPrefill := NewRequest(2, NewUser("b"), NewApplication("app"), 2, StageUserPrompt, 200, 0, 5, 0)
	e.Submit(newPrefill)

	events := e.Step()

	sawDecode := false
	prefillStarts := 0
	for _, ev := range events {
		if ev.Type == EventDecodeStep {
			sawDecode = true
		}
		if ev.Type == EventPrefillChunkStarted {
			prefillStarts++
		}
	}
	if !sawDecode {
		t.Error("expected at least one DECODE_STEP event")
	}
	if prefillStarts > 1 {
		t.Errorf("expected at most one PREFILL_CHUNK_STARTED, got %d", prefillStarts)
	}
}

// Scenario 5: KV capacity blocks new prefill, leaving it pending across steps.
func TestEngine_KVCapacityBlocksNewPrefill(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxKVTokens = 1000
	cfg.MaxNumBatchedTokens = 2000
	cfg.ChunkSize = 2000
	e := NewEngine(cfg)

	first := NewRequest(1, NewUser("a"), NewApplication("app"), 1, StageUserPrompt, 900, 0, 5, 0)
	second := NewRequest(2, NewUser("b"), NewApplication("app"), 2, StageUserPrompt, 900, 0, 5, 0)
	e.Submit(first)
	e.Submit(second)

	e.Step()
	snap1 := e.Snapshot()
	e.Step()
	snap2 := e.Snapshot()

	if snap1.NumPendingPrefills < 1 || snap2.NumPendingPrefills < 1 {
		t.Errorf("expected the second request to remain pending across steps due to KV capacity, snap1=%+v snap2=%+v", snap1, snap2)
	}
}

// Scenario 6: FairServe prefers a continuation over a new interaction when
// counters are equal.
func TestOrchestrator_FairServeInteractionPriority(t *testing.T) {
	sched := NewWSCScheduler(1.0, 2.0, 1.0, false)
	wq := &WaitQueue{}
	app := NewApplication("app")
	newReq := NewRequest(1, NewUser("a"), app, 1, StageUserPrompt, 10, 0, 5, 0)
	continuation := NewRequest(2, NewUser("b"), app, 2, StageAgent1, 10, 0, 5, 0)
	wq.Enqueue(newReq)
	wq.Enqueue(continuation)

	selected := sched.SelectNextRequests(wq, nil, roomySnapshot(), 1)
	if len(selected) != 1 || selected[0] != continuation {
		t.Fatalf("expected b's continuation to be admitted first, got %v", selected)
	}
}

func TestOrchestrator_InjectRequests_ThrottlesUnderOverload(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.OIT.KVThreshold = 0
	cfg.OIT.MaxBatch = 0
	o := NewOrchestrator(cfg)
	o.OIT = NewOIT(60, 0, 0)

	app := NewApplication("app")
	app.UserRPMLimit = 0
	req := NewRequest(1, NewUser("a"), app, 1, StageUserPrompt, 10, 0, 5, 0)

	o.InjectRequests([]*Request{req})

	if !req.Throttled {
		t.Error("expected request to be throttled under perpetual overload with zero RPM limit")
	}
	if o.waiting.Len() != 0 {
		t.Errorf("throttled request should not enter the waiting queue, waiting len = %d", o.waiting.Len())
	}
}
