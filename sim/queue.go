// Implements the WaitQueue, which holds requests waiting to be released to
// the engine. Requests are enqueued on arrival (initial stage or a
// continuation re-entering after its predecessor's completion) and popped
// by the active Scheduler's SelectNextRequests, in waiting-queue order or
// out of order via Remove.

package sim

// WaitQueue is a FIFO queue of requests waiting to be scheduled. Schedulers
// may pop from anywhere in the queue (Remove), not just the head (Dequeue);
// anything left in the queue at the end of a SelectNextRequests call is
// preserved, in its original relative order, for the next tick.
type WaitQueue struct {
	requests []*Request
}

// Len returns the number of requests currently waiting.
func (wq *WaitQueue) Len() int {
	return len(wq.requests)
}

// Enqueue adds a request to the back of the wait queue.
func (wq *WaitQueue) Enqueue(r *Request) {
	wq.requests = append(wq.requests, r)
}

// Peek returns the request at the front of the queue without removing it,
// or nil if the queue is empty.
func (wq *WaitQueue) Peek() *Request {
	if len(wq.requests) == 0 {
		return nil
	}
	return wq.requests[0]
}

// Dequeue removes and returns the request at the front of the queue, or
// nil if the queue is empty.
func (wq *WaitQueue) Dequeue() *Request {
	if len(wq.requests) == 0 {
		return nil
	}
	r := wq.requests[0]
	wq.requests = wq.requests[1:]
	return r
}

// Remove removes the first occurrence of r from the queue by value,
// preserving the FIFO order of everything else. Used by VTC/WSC, which
// pick a fairness-ordered candidate that need not be at the head.
func (wq *WaitQueue) Remove(r *Request) {
	for i, req := range wq.requests {
		if req == r {
			wq.requests = append(wq.requests[:i], wq.requests[i+1:]...)
			return
		}
	}
}

// Snapshot returns the current contents of the queue in FIFO order,
// without modifying it. Callers must not mutate the returned slice.
func (wq *WaitQueue) Snapshot() []*Request {
	return wq.requests
}

// HeadByUser returns, for each distinct user with a waiting request, that
// user's earliest (lowest index / earliest-arrival) waiting request.
// Matches the Python prototype's waiting_by_user dict-building loop: the
// first request encountered per user wins.
func (wq *WaitQueue) HeadByUser(pool []*Request) map[string]*Request {
	heads := make(map[string]*Request)
	for _, r := range pool {
		if _, ok := heads[r.User.ID]; !ok {
			heads[r.User.ID] = r
		}
	}
	return heads
}
