package sim

// Application identifies a tenant application and carries per-stage
// expected token triples used both for workload generation and for the
// WSC scheduler's stage-weight normalization.
type Application struct {
	ID string

	// ExpectedInputTokens, ExpectedSystemTokens, ExpectedOutputTokens are
	// keyed by InteractionStage. A stage absent from a map defaults to 1
	// input/output token and 0 system tokens, matching the Python
	// prototype's dict.get(idx, default) behavior.
	ExpectedInputTokens  map[InteractionStage]int
	ExpectedSystemTokens map[InteractionStage]int
	ExpectedOutputTokens map[InteractionStage]int

	UserRPMLimit int // default 120
	AppRPMLimit  int // default 2000
}

// NewApplication creates an Application with the default RPM limits.
func NewApplication(id string) *Application {
	return &Application{
		ID:                   id,
		ExpectedInputTokens:  map[InteractionStage]int{},
		ExpectedSystemTokens: map[InteractionStage]int{},
		ExpectedOutputTokens: map[InteractionStage]int{},
		UserRPMLimit:         120,
		AppRPMLimit:          2000,
	}
}

// StageWeight computes w(stage) = alpha*E[input] + beta*E[system] +
// gamma*E[output] for the WSC scheduler. All three coefficients must be
// strictly positive so that w is always > 0; callers (NewWSCScheduler)
// enforce this at construction.
func (a *Application) StageWeight(stage InteractionStage, alpha, beta, gamma float64) float64 {
	ni := a.expectedOr(a.ExpectedInputTokens, stage, 1)
	ns := a.expectedOr(a.ExpectedSystemTokens, stage, 0)
	no := a.expectedOr(a.ExpectedOutputTokens, stage, 1)
	return alpha*float64(ni) + beta*float64(ns) + gamma*float64(no)
}

func (a *Application) expectedOr(m map[InteractionStage]int, stage InteractionStage, def int) int {
	if v, ok := m[stage]; ok {
		return v
	}
	return def
}
