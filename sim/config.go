package sim

// RunConfig groups the single-run configuration knobs named in §4.4: KV
// capacity and batch cap (via Engine/OIT), run horizon, and the scheduler
// selection and its weights. This is the in-memory counterpart of
// ScenarioBundle — the orchestrator is constructed from a RunConfig, which
// a caller may build directly or derive from a loaded ScenarioBundle.
type RunConfig struct {
	Engine   EngineConfig
	OIT      OITConfig
	MaxTicks int64
	Seed     int64

	SchedulerName string
	SchedulerWP   float64
	SchedulerWQ   float64
	Alpha         float64
	Beta          float64
	Gamma         float64
	CounterLift   bool
}

// DefaultRunConfig returns a RunConfig with the engine's and OIT's default
// parameters, FCFS scheduling, and counter-lift enabled.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Engine:        DefaultEngineConfig(),
		OIT:           OITConfig{Window: 60, KVThreshold: 5000, MaxBatch: 32},
		MaxTicks:      10000,
		SchedulerName: "fcfs",
		SchedulerWP:   1.0,
		SchedulerWQ:   1.0,
		Alpha:         1.0,
		Beta:          2.0,
		Gamma:         1.0,
		CounterLift:   true,
	}
}

// RunConfigFromBundle merges a loaded ScenarioBundle's overrides onto
// DefaultRunConfig.
func RunConfigFromBundle(b *ScenarioBundle) RunConfig {
	cfg := DefaultRunConfig()
	if b.Scheduler != "" {
		cfg.SchedulerName = b.Scheduler
	}
	if b.SchedulerWP != nil {
		cfg.SchedulerWP = *b.SchedulerWP
	}
	if b.SchedulerWQ != nil {
		cfg.SchedulerWQ = *b.SchedulerWQ
	}
	if b.Alpha != nil {
		cfg.Alpha = *b.Alpha
	}
	if b.Beta != nil {
		cfg.Beta = *b.Beta
	}
	if b.Gamma != nil {
		cfg.Gamma = *b.Gamma
	}
	if b.CounterLift != nil {
		cfg.CounterLift = *b.CounterLift
	}
	if b.OIT.Window != 0 {
		cfg.OIT.Window = b.OIT.Window
	}
	if b.OIT.KVThreshold != 0 {
		cfg.OIT.KVThreshold = b.OIT.KVThreshold
	}
	if b.OIT.MaxBatch != 0 {
		cfg.OIT.MaxBatch = b.OIT.MaxBatch
	}
	cfg.Engine = b.Engine.ToEngineConfig()
	if b.MaxTicks != 0 {
		cfg.MaxTicks = b.MaxTicks
	}
	if b.Seed != 0 {
		cfg.Seed = b.Seed
	}
	return cfg
}

// NewScheduler builds the Scheduler this RunConfig names.
func (c RunConfig) NewScheduler() Scheduler {
	return NewScheduler(c.SchedulerName, c.SchedulerWP, c.SchedulerWQ, c.Alpha, c.Beta, c.Gamma, c.CounterLift)
}

// NewOIT builds the OIT this RunConfig names.
func (c RunConfig) NewOIT() *OIT {
	return NewOIT(c.OIT.Window, c.OIT.KVThreshold, c.OIT.MaxBatch)
}
