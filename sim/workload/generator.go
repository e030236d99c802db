// Package workload is the external collaborator the core simulator
// expects (pre-built Interactions with final token counts and arrival
// times) but does not implement itself. Grounded on
// original_source/workload.py's WorkloadGenerator, adapted to draw from
// sim.PartitionedRNG-derived *rand.Rand instances instead of Python's
// random.Random, and to the teacher's sim/workload package layout
// (generator.go, distribution.go).
package workload

import (
	"math/rand"

	"github.com/fairserve-sim/fairserve-sim/sim"
)

// Generator produces synthetic Interactions for a fixed roster of users
// and applications. Token sizing and arrival timing draw from two
// independent RNGs so that neither perturbs the other's sequence.
type Generator struct {
	Users []*sim.User
	Apps  []*sim.Application

	tokenRng          *rand.Rand
	arrivalRng        *rand.Rand
	nextRequestID     int64
	nextInteractionID int64
}

// NewGenerator constructs a Generator. tokenRng and arrivalRng are
// typically sim.SubsystemTokenJitter and sim.SubsystemArrivals drawn
// from one shared PartitionedRNG, so every generator built on the same
// SimulationKey reproduces the same trace.
func NewGenerator(tokenRng, arrivalRng *rand.Rand, users []*sim.User, apps []*sim.Application) *Generator {
	return &Generator{Users: users, Apps: apps, tokenRng: tokenRng, arrivalRng: arrivalRng}
}

// sampleTokens samples uniformly within +/-30% of expected, floored at 1,
// matching the prototype's _sample_tokens.
func sampleTokens(rng *rand.Rand, expected int) int {
	low := int(0.7 * float64(expected))
	if low < 1 {
		low = 1
	}
	high := int(1.3 * float64(expected))
	if high < low+1 {
		high = low + 1
	}
	return low + rng.Intn(high-low+1)
}

func expectedOrDefault(m map[sim.InteractionStage]int, stage sim.InteractionStage, def int) int {
	if v, ok := m[stage]; ok {
		return v
	}
	return def
}

// GenerateInteraction builds one Interaction for user/app spanning the
// given stages, with every request's ArrivalTime left at zero — the
// caller is responsible for setting it (BuildTrace does this for its own
// callers).
func (g *Generator) GenerateInteraction(user *sim.User, app *sim.Application, stages []sim.InteractionStage) *sim.Interaction {
	id := g.nextInteractionID
	g.nextInteractionID++

	requests := make([]*sim.Request, 0, len(stages))
	for _, stage := range stages {
		input := sampleTokens(g.tokenRng, expectedOrDefault(app.ExpectedInputTokens, stage, 1))
		system := sampleTokens(g.tokenRng, expectedOrDefault(app.ExpectedSystemTokens, stage, 0))
		output := sampleTokens(g.tokenRng, expectedOrDefault(app.ExpectedOutputTokens, stage, 1))
		req := sim.NewRequest(g.nextRequestID, user, app, id, stage, input, system, output, 0)
		g.nextRequestID++
		requests = append(requests, req)
	}
	return sim.NewInteraction(id, requests)
}

// PoissonArrivals samples arrival times over [0, duration) from a Poisson
// process with the given rate, matching the prototype's poisson_arrivals
// (inter-arrival gaps drawn from an exponential distribution, floored at
// one tick).
func PoissonArrivals(rng *rand.Rand, rate float64, duration int64) []int64 {
	var times []int64
	var t int64
	for t < duration {
		gap := int64(rng.ExpFloat64() / rate)
		if gap < 1 {
			gap = 1
		}
		t += gap
		if t < duration {
			times = append(times, t)
		}
	}
	return times
}

// BuildTrace assigns each user a Poisson arrival process — a higher rate
// for users named in abusiveUsers, a lower rate for the rest — and mixes
// in a four-stage pipeline for the application named "multiagent" versus
// a two-stage USER_PROMPT->FINAL pipeline for everyone else. This
// asymmetry is what makes the fairness properties of the core observable
// in an end-to-end run, matching the prototype's build_trace.
func (g *Generator) BuildTrace(duration int64, abusiveUsers map[string]bool) map[int64][]*sim.Interaction {
	const normalRate = 0.05
	const abusiveRate = 0.3

	trace := map[int64][]*sim.Interaction{}
	for idx, user := range g.Users {
		app := g.Apps[idx%len(g.Apps)]
		rate := normalRate
		if abusiveUsers[user.ID] {
			rate = abusiveRate
		}
		for _, ts := range PoissonArrivals(g.arrivalRng, rate, duration) {
			stages := []sim.InteractionStage{sim.StageUserPrompt, sim.StageFinal}
			if app.ID == "multiagent" {
				stages = []sim.InteractionStage{sim.StageUserPrompt, sim.StageAgent1, sim.StageAgent2, sim.StageFinal}
			}
			inter := g.GenerateInteraction(user, app, stages)
			for _, r := range inter.Requests {
				r.ArrivalTime = ts
			}
			trace[ts] = append(trace[ts], inter)
		}
	}
	return trace
}
