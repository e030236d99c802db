// Defines the Request struct that models one stage's execution unit in a
// multi-tenant interaction: a single model request whose output must
// complete before the interaction's next stage request arrives.

package sim

// Request models one stage's execution unit. A Request holds only its
// InteractionID, never a back-pointer to the owning *Interaction — the
// orchestrator alone owns the interaction map, avoiding cyclic ownership.
type Request struct {
	ID            int64
	User          *User
	Application   *Application
	InteractionID int64
	Stage         InteractionStage

	InputTokens        int
	SystemTokens       int
	OutputTokensTarget int

	ArrivalTime int64

	// RemainingDecode counts down from OutputTokensTarget to zero as the
	// engine emits decode steps. Invariant: 0 <= RemainingDecode <=
	// OutputTokensTarget.
	RemainingDecode int

	StartTime      *int64
	CompletionTime *float64 // real-valued: set from an engine event's Time

	Throttled bool
	Stalled   bool
}

// NewRequest constructs a Request with RemainingDecode initialized to
// OutputTokensTarget. Panics on malformed input (negative token counts,
// non-positive output target) — these are programmer errors, not runtime
// conditions the simulator tolerates.
func NewRequest(id int64, user *User, app *Application, interactionID int64, stage InteractionStage, inputTokens, systemTokens, outputTokensTarget int, arrivalTime int64) *Request {
	if inputTokens < 0 || systemTokens < 0 {
		panic("sim: Request token counts must be non-negative")
	}
	if outputTokensTarget < 1 {
		panic("sim: Request.OutputTokensTarget must be >= 1")
	}
	return &Request{
		ID:                 id,
		User:               user,
		Application:        app,
		InteractionID:      interactionID,
		Stage:              stage,
		InputTokens:        inputTokens,
		SystemTokens:       systemTokens,
		OutputTokensTarget: outputTokensTarget,
		ArrivalTime:        arrivalTime,
		RemainingDecode:    outputTokensTarget,
	}
}

// Done reports whether the request has finished decoding all of its
// output tokens.
func (r *Request) Done() bool {
	return r.RemainingDecode <= 0
}

// Latency returns completion_time - arrival_time once the request has
// completed, and (0, false) otherwise.
func (r *Request) Latency() (float64, bool) {
	if r.CompletionTime == nil {
		return 0, false
	}
	return *r.CompletionTime - float64(r.ArrivalTime), true
}

// TotalTokens returns input+system+output_target, the unit used both for
// per-user token accounting and for wasted-token accounting of still
// -waiting requests at the end of a run.
func (r *Request) TotalTokens() int {
	return r.InputTokens + r.SystemTokens + r.OutputTokensTarget
}
