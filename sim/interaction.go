// Defines the Interaction struct: an ordered multi-stage conversation whose
// stages are gated by prior-stage completion.

package sim

// Interaction is an ordered sequence of stage Requests sharing one
// InteractionID. The orchestrator owns every Interaction; a Request never
// points back to it.
type Interaction struct {
	ID       int64
	Requests []*Request
	// NextIndex is the index of the next stage request to release, once
	// the previous stage completes.
	NextIndex int
	Complete  bool
}

// NewInteraction constructs an Interaction from its ordered stage requests.
// Panics if requests is empty or any request's InteractionID mismatches id
// — both are programmer errors per the data model's invariants.
func NewInteraction(id int64, requests []*Request) *Interaction {
	if len(requests) == 0 {
		panic("sim: Interaction must have at least one request")
	}
	for _, r := range requests {
		if r.InteractionID != id {
			panic("sim: Request.InteractionID does not match owning Interaction")
		}
	}
	return &Interaction{ID: id, Requests: requests}
}

// NextRequest returns the next stage's Request and advances NextIndex, or
// nil once every stage has been released. Marks Complete when exhausted.
func (i *Interaction) NextRequest() *Request {
	if i.Complete || i.NextIndex >= len(i.Requests) {
		i.Complete = true
		return nil
	}
	req := i.Requests[i.NextIndex]
	i.NextIndex++
	return req
}

// MarkStageComplete marks the interaction complete once every stage has
// been released to the waiting queue. Called when a stage request
// finishes, before NextRequest is invoked to release the next stage.
func (i *Interaction) MarkStageComplete() {
	if i.NextIndex >= len(i.Requests) {
		i.Complete = true
	}
}
