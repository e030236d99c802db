// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fairserve-sim/fairserve-sim/sim"
	"github.com/fairserve-sim/fairserve-sim/sim/workload"
)

var (
	scenarioPath  string
	logLevel      string
	seed          int64
	maxTicks      int64
	traceDuration int64
	schedulerFlag string
	abusiveUsers  []string
	compareAll    bool
)

var rootCmd = &cobra.Command{
	Use:   "fairserve-sim",
	Short: "Discrete-event simulator for a fairness-aware multi-tenant inference service",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scenario and print its metrics",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, users, apps, err := loadRunInputs()
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		applyOverrides(&cfg)

		prng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
		gen := workload.NewGenerator(prng.ForSubsystem(sim.SubsystemTokenJitter), prng.ForSubsystem(sim.SubsystemArrivals), users, apps)
		trace := gen.BuildTrace(traceDuration, toSet(abusiveUsers))

		if compareAll {
			printComparison(cfg, trace)
			return
		}

		logrus.Infof("running scheduler=%s seed=%d max_ticks=%d", cfg.SchedulerName, cfg.Seed, cfg.MaxTicks)
		runOnce(cfg, trace).Print()
		logrus.Info("simulation complete")
	},
}

// loadRunInputs builds a RunConfig and workload roster either from a
// scenario file or, absent one, from a small built-in demo roster.
func loadRunInputs() (sim.RunConfig, []*sim.User, []*sim.Application, error) {
	if scenarioPath == "" {
		return defaultScenario()
	}
	bundle, err := sim.LoadScenarioBundle(scenarioPath)
	if err != nil {
		return sim.RunConfig{}, nil, nil, err
	}
	if err := bundle.Validate(); err != nil {
		return sim.RunConfig{}, nil, nil, err
	}

	users := make([]*sim.User, 0, len(bundle.Users))
	for _, u := range bundle.Users {
		user := sim.NewUser(u.ID)
		if u.Priority != 0 {
			user.Priority = u.Priority
		}
		users = append(users, user)
	}
	apps := make([]*sim.Application, 0, len(bundle.Apps))
	for _, a := range bundle.Apps {
		app := sim.NewApplication(a.ID)
		if a.UserRPMLimit != 0 {
			app.UserRPMLimit = a.UserRPMLimit
		}
		if a.AppRPMLimit != 0 {
			app.AppRPMLimit = a.AppRPMLimit
		}
		app.ExpectedInputTokens = stageMap(a.ExpectedInputTokens)
		app.ExpectedSystemTokens = stageMap(a.ExpectedSystemTokens)
		app.ExpectedOutputTokens = stageMap(a.ExpectedOutputTokens)
		apps = append(apps, app)
	}
	if len(users) == 0 || len(apps) == 0 {
		return sim.RunConfig{}, nil, nil, fmt.Errorf("scenario %s must define at least one user and one application", scenarioPath)
	}
	return sim.RunConfigFromBundle(bundle), users, apps, nil
}

func stageMap(m map[string]int) map[sim.InteractionStage]int {
	out := make(map[sim.InteractionStage]int, len(m))
	for k, v := range m {
		out[sim.ParseStage(k)] = v
	}
	return out
}

// defaultScenario builds a small demo roster: two well-behaved users and
// one left to run abusive via --abusive, sharing a single two-stage
// application, so `run` works with no flags at all.
func defaultScenario() (sim.RunConfig, []*sim.User, []*sim.Application, error) {
	cfg := sim.DefaultRunConfig()
	app := sim.NewApplication("default")
	app.ExpectedInputTokens[sim.StageUserPrompt] = 200
	app.ExpectedSystemTokens[sim.StageUserPrompt] = 20
	app.ExpectedOutputTokens[sim.StageUserPrompt] = 60
	app.ExpectedInputTokens[sim.StageFinal] = 50
	app.ExpectedOutputTokens[sim.StageFinal] = 30
	users := []*sim.User{sim.NewUser("alice"), sim.NewUser("bob"), sim.NewUser("carol")}
	apps := []*sim.Application{app, app, app}
	return cfg, users, apps, nil
}

func applyOverrides(cfg *sim.RunConfig) {
	if schedulerFlag != "" {
		if !sim.IsValidScheduler(schedulerFlag) {
			logrus.Fatalf("unknown scheduler %q; valid options: %v", schedulerFlag, sim.ValidSchedulerNames())
		}
		cfg.SchedulerName = schedulerFlag
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if maxTicks != 0 {
		cfg.MaxTicks = maxTicks
	}
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// runOnce replays trace through one Orchestrator configured per cfg and
// returns its final metrics.
func runOnce(cfg sim.RunConfig, trace map[int64][]*sim.Interaction) sim.Metrics {
	o := sim.NewOrchestrator(cfg)
	submitTrace(o, trace)
	o.Run()
	return o.Metrics()
}

// submitTrace replays a trace's interactions to the orchestrator in
// arrival-tick order.
func submitTrace(o *sim.Orchestrator, trace map[int64][]*sim.Interaction) {
	ticks := make([]int64, 0, len(trace))
	for t := range trace {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	for _, t := range ticks {
		for _, inter := range trace[t] {
			o.SubmitInteraction(inter)
		}
	}
}

// cloneTrace deep-copies every Interaction and Request in trace. A run
// mutates its Interactions and Requests in place (NextRequest latches
// Complete, the engine writes StartTime/CompletionTime/RemainingDecode),
// so replaying the same trace through more than one scheduler requires a
// fresh, unmutated copy per run rather than the original pointers.
func cloneTrace(trace map[int64][]*sim.Interaction) map[int64][]*sim.Interaction {
	clone := make(map[int64][]*sim.Interaction, len(trace))
	for tick, interactions := range trace {
		cloned := make([]*sim.Interaction, len(interactions))
		for i, inter := range interactions {
			requests := make([]*sim.Request, len(inter.Requests))
			for j, r := range inter.Requests {
				requests[j] = sim.NewRequest(r.ID, r.User, r.Application, r.InteractionID, r.Stage, r.InputTokens, r.SystemTokens, r.OutputTokensTarget, r.ArrivalTime)
			}
			cloned[i] = sim.NewInteraction(inter.ID, requests)
		}
		clone[tick] = cloned
	}
	return clone
}

// runComparison replays an independent clone of trace through every
// registered scheduler and returns each one's final metrics keyed by
// scheduler name, preserving sim.ValidSchedulerNames order.
func runComparison(cfg sim.RunConfig, trace map[int64][]*sim.Interaction) (order []string, results map[string]sim.Metrics) {
	results = make(map[string]sim.Metrics, len(sim.ValidSchedulerNames()))
	for _, name := range sim.ValidSchedulerNames() {
		runCfg := cfg
		runCfg.SchedulerName = name
		results[name] = runOnce(runCfg, cloneTrace(trace))
		order = append(order, name)
	}
	return order, results
}

// printComparison runs the comparison and prints a side-by-side metrics
// table, the --compare-all mode.
func printComparison(cfg sim.RunConfig, trace map[int64][]*sim.Interaction) {
	order, results := runComparison(cfg, trace)
	for _, name := range order {
		fmt.Printf("=== scheduler=%s ===\n", name)
		results[name].Print()
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file (omit for a small built-in demo roster)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed override (0 keeps the scenario's own seed)")
	runCmd.Flags().Int64Var(&maxTicks, "max-ticks", 0, "simulation tick horizon override (0 keeps the scenario's own)")
	runCmd.Flags().Int64Var(&traceDuration, "duration", 2000, "workload trace duration in ticks")
	runCmd.Flags().StringVar(&schedulerFlag, "scheduler", "", "scheduler override: fcfs, vtc, or wsc")
	runCmd.Flags().StringSliceVar(&abusiveUsers, "abusive", nil, "user ids to generate at an elevated (abusive) arrival rate")
	runCmd.Flags().BoolVar(&compareAll, "compare-all", false, "replay the same trace through every scheduler and print a comparison table")

	rootCmd.AddCommand(runCmd)
}
