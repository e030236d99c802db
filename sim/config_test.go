package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRunConfig_FieldEquivalence(t *testing.T) {
	got := DefaultRunConfig()
	assert.Equal(t, DefaultEngineConfig(), got.Engine)
	assert.Equal(t, OITConfig{Window: 60, KVThreshold: 5000, MaxBatch: 32}, got.OIT)
	assert.Equal(t, int64(10000), got.MaxTicks)
	assert.Equal(t, "fcfs", got.SchedulerName)
	assert.Equal(t, 1.0, got.SchedulerWP)
	assert.Equal(t, 1.0, got.SchedulerWQ)
	assert.Equal(t, 1.0, got.Alpha)
	assert.Equal(t, 2.0, got.Beta)
	assert.Equal(t, 1.0, got.Gamma)
	assert.True(t, got.CounterLift)
}

func TestRunConfigFromBundle_OverridesOnlySetFields(t *testing.T) {
	wp := 3.5
	bundle := &ScenarioBundle{
		Scheduler:   "vtc",
		SchedulerWP: &wp,
		OIT:         OITConfig{Window: 120, KVThreshold: 100, MaxBatch: 8},
		MaxTicks:    500,
		Seed:        42,
	}
	got := RunConfigFromBundle(bundle)

	assert.Equal(t, "vtc", got.SchedulerName)
	assert.Equal(t, 3.5, got.SchedulerWP)
	assert.Equal(t, 1.0, got.SchedulerWQ, "unset field should keep DefaultRunConfig's value")
	assert.Equal(t, int64(120), got.OIT.Window)
	assert.Equal(t, int64(500), got.MaxTicks)
	assert.Equal(t, int64(42), got.Seed)
	assert.True(t, got.CounterLift, "unset *bool field should keep DefaultRunConfig's value")
}

func TestRunConfigFromBundle_EmptyBundle_MatchesDefault(t *testing.T) {
	got := RunConfigFromBundle(&ScenarioBundle{})
	assert.Equal(t, DefaultRunConfig(), got)
}

func TestRunConfig_NewScheduler_UsesNamedFields(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.SchedulerName = "wsc"
	sched, ok := cfg.NewScheduler().(*WSCScheduler)
	if !ok {
		t.Fatalf("NewScheduler() returned %T, want *WSCScheduler", cfg.NewScheduler())
	}
	assert.Equal(t, cfg.Alpha, sched.Alpha)
	assert.Equal(t, cfg.Beta, sched.Beta)
	assert.Equal(t, cfg.Gamma, sched.Gamma)
}

func TestRunConfig_NewOIT_UsesConfiguredLimits(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.OIT = OITConfig{Window: 10, KVThreshold: 1, MaxBatch: 2}
	oit := cfg.NewOIT()
	assert.Equal(t, int64(10), oit.Window)
	assert.Equal(t, 1, oit.KVThreshold)
	assert.Equal(t, 2, oit.MaxBatch)
}
