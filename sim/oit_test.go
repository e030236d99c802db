package sim

import "testing"

func oitReq(id int64, userID string, stage InteractionStage, arrival int64, app *Application) *Request {
	return NewRequest(id, NewUser(userID), app, id, stage, 10, 0, 5, arrival)
}

func TestOIT_IsOverloaded_KVThresholdBoundary(t *testing.T) {
	o := NewOIT(60, 100, 10)
	if o.IsOverloaded(100, 0) {
		t.Error("kv usage exactly at threshold should not count as overloaded")
	}
	if !o.IsOverloaded(101, 0) {
		t.Error("kv usage above threshold should count as overloaded")
	}
}

func TestOIT_IsOverloaded_MaxBatchBoundary(t *testing.T) {
	o := NewOIT(60, 1<<30, 10)
	if o.IsOverloaded(0, 9) {
		t.Error("running below max_batch should not count as overloaded")
	}
	if !o.IsOverloaded(0, 10) {
		t.Error("running at or above max_batch should count as overloaded")
	}
}

func TestOIT_ShouldThrottle_NeverThrottlesContinuations(t *testing.T) {
	o := NewOIT(60, 0, 0) // perpetually overloaded
	app := NewApplication("app")
	app.UserRPMLimit = 0
	app.AppRPMLimit = 0

	req := oitReq(1, "a", StageAgent1, 0, app)
	if o.ShouldThrottle(req, 999, 999) {
		t.Error("ShouldThrottle must never throttle a non-stage-0 request, regardless of load")
	}
}

func TestOIT_ShouldThrottle_NotOverloaded_NeverThrottles(t *testing.T) {
	o := NewOIT(60, 1000, 100)
	app := NewApplication("app")
	app.UserRPMLimit = 0
	req := oitReq(1, "a", StageUserPrompt, 0, app)
	if o.ShouldThrottle(req, 0, 0) {
		t.Error("an unloaded engine should never throttle, regardless of RPM limits")
	}
}

func TestOIT_ShouldThrottle_RespectsUserRPMLimit(t *testing.T) {
	o := NewOIT(60, 0, 0)
	app := NewApplication("app")
	app.UserRPMLimit = 1
	app.AppRPMLimit = 1 << 30

	first := oitReq(1, "a", StageUserPrompt, 0, app)
	if o.ShouldThrottle(first, 999, 999) {
		t.Fatal("first arrival within the window should not be throttled")
	}
	o.RecordArrival(first)

	second := oitReq(2, "a", StageUserPrompt, 1, app)
	if !o.ShouldThrottle(second, 999, 999) {
		t.Error("second arrival within the window should be throttled once user_rpm_limit=1 is reached")
	}
}

func TestOIT_ShouldThrottle_RespectsAppRPMLimit(t *testing.T) {
	o := NewOIT(60, 0, 0)
	app := NewApplication("app")
	app.UserRPMLimit = 1 << 30
	app.AppRPMLimit = 1

	first := oitReq(1, "a", StageUserPrompt, 0, app)
	o.ShouldThrottle(first, 999, 999)
	o.RecordArrival(first)

	second := oitReq(2, "b", StageUserPrompt, 1, app)
	if !o.ShouldThrottle(second, 999, 999) {
		t.Error("a different user sharing the same overloaded application should still be throttled at app_rpm_limit=1")
	}
}

func TestOIT_ShouldThrottle_WindowEvictionAllowsRetry(t *testing.T) {
	o := NewOIT(10, 0, 0)
	app := NewApplication("app")
	app.UserRPMLimit = 1
	app.AppRPMLimit = 1 << 30

	first := oitReq(1, "a", StageUserPrompt, 0, app)
	o.ShouldThrottle(first, 999, 999)
	o.RecordArrival(first)

	// Well outside the 10-tick window: the first arrival should have been
	// evicted, freeing up the user's RPM budget again.
	late := oitReq(2, "a", StageUserPrompt, 100, app)
	if o.ShouldThrottle(late, 999, 999) {
		t.Error("an arrival outside the sliding window should not be throttled by a stale entry")
	}
}

func TestOIT_Throttle_SetsFlagAndIncrementsCounter(t *testing.T) {
	o := NewOIT(60, 0, 0)
	req := oitReq(1, "a", StageUserPrompt, 0, NewApplication("app"))
	o.Throttle(req)
	if !req.Throttled {
		t.Error("Throttle should set Request.Throttled")
	}
	if o.Throttled != 1 {
		t.Errorf("Throttled counter = %d, want 1", o.Throttled)
	}
}
