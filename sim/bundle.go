package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenarioBundle holds a complete scenario configuration, loadable from a
// YAML file: scheduler choice and weights, OIT parameters, engine
// parameters, and the users/applications participating in the run.
// Nil pointer fields mean "not set in YAML" — callers fall back to the
// relevant Default*Config().
type ScenarioBundle struct {
	Scheduler   string            `yaml:"scheduler"`
	SchedulerWP *float64          `yaml:"scheduler_wp"`
	SchedulerWQ *float64          `yaml:"scheduler_wq"`
	Alpha       *float64          `yaml:"alpha"`
	Beta        *float64          `yaml:"beta"`
	Gamma       *float64          `yaml:"gamma"`
	CounterLift *bool             `yaml:"counter_lift"`
	OIT         OITConfig         `yaml:"oit"`
	Engine      EngineConfigYAML  `yaml:"engine"`
	MaxTicks    int64             `yaml:"max_ticks"`
	Seed        int64             `yaml:"seed"`
	Users       []UserConfig      `yaml:"users"`
	Apps        []ApplicationYAML `yaml:"applications"`
}

// OITConfig mirrors OIT's tunables for YAML loading.
type OITConfig struct {
	Window      int64 `yaml:"window"`
	KVThreshold int   `yaml:"kv_threshold"`
	MaxBatch    int   `yaml:"max_batch"`
}

// EngineConfigYAML mirrors EngineConfig for YAML loading; zero fields fall
// back to DefaultEngineConfig's corresponding value in ToEngineConfig.
type EngineConfigYAML struct {
	MaxKVTokens         int     `yaml:"max_kv_tokens"`
	MaxNumBatchedTokens int     `yaml:"max_num_batched_tokens"`
	ChunkSize           int     `yaml:"chunk_size"`
	AP                  float64 `yaml:"ap"`
	BP                  float64 `yaml:"bp"`
	CP                  float64 `yaml:"cp"`
	AD                  float64 `yaml:"ad"`
	BD                  float64 `yaml:"bd"`
}

// ToEngineConfig merges YAML-supplied values over DefaultEngineConfig,
// leaving zero-valued fields at their default.
func (e EngineConfigYAML) ToEngineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	if e.MaxKVTokens != 0 {
		cfg.MaxKVTokens = e.MaxKVTokens
	}
	if e.MaxNumBatchedTokens != 0 {
		cfg.MaxNumBatchedTokens = e.MaxNumBatchedTokens
	}
	if e.ChunkSize != 0 {
		cfg.ChunkSize = e.ChunkSize
	}
	if e.AP != 0 {
		cfg.AP = e.AP
	}
	if e.BP != 0 {
		cfg.BP = e.BP
	}
	if e.CP != 0 {
		cfg.CP = e.CP
	}
	if e.AD != 0 {
		cfg.AD = e.AD
	}
	if e.BD != 0 {
		cfg.BD = e.BD
	}
	return cfg
}

// UserConfig describes one user participating in the scenario.
type UserConfig struct {
	ID       string  `yaml:"id"`
	Priority float64 `yaml:"priority"`
}

// ApplicationYAML describes one application participating in the scenario.
type ApplicationYAML struct {
	ID                   string        `yaml:"id"`
	UserRPMLimit         int           `yaml:"user_rpm_limit"`
	AppRPMLimit          int           `yaml:"app_rpm_limit"`
	ExpectedInputTokens  map[string]int `yaml:"expected_input_tokens"`
	ExpectedSystemTokens map[string]int `yaml:"expected_system_tokens"`
	ExpectedOutputTokens map[string]int `yaml:"expected_output_tokens"`
}

// LoadScenarioBundle reads and parses a YAML scenario configuration file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenarioBundle(path string) (*ScenarioBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	var bundle ScenarioBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	return &bundle, nil
}

// Valid policy name registries. Unexported to prevent external mutation.
var validSchedulers = map[string]bool{"": true, "fcfs": true, "vtc": true, "wsc": true}

// IsValidScheduler returns true if name is a recognized scheduler.
func IsValidScheduler(name string) bool { return validSchedulers[name] }

// ValidSchedulerNames returns sorted valid scheduler names (excluding empty).
func ValidSchedulerNames() []string { return validNamesList(validSchedulers) }

// validNamesList returns sorted non-empty keys from a validity map.
func validNamesList(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// validNames returns a sorted comma-separated list of valid names (excluding empty string).
func validNames(m map[string]bool) string {
	names := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Validate checks the scheduler name, the scheduler weights (finite and
// non-negative), oit.window and max_ticks (non-negative), and that user and
// application ids are present and unique. Engine parameters, the other OIT
// fields and user priorities are not checked.
func (b *ScenarioBundle) Validate() error {
	if !validSchedulers[b.Scheduler] {
		return fmt.Errorf("unknown scheduler %q; valid options: %s", b.Scheduler, validNames(validSchedulers))
	}
	if err := validateFloat("scheduler_wp", b.SchedulerWP); err != nil {
		return err
	}
	if err := validateFloat("scheduler_wq", b.SchedulerWQ); err != nil {
		return err
	}
	if err := validateFloat("alpha", b.Alpha); err != nil {
		return err
	}
	if err := validateFloat("beta", b.Beta); err != nil {
		return err
	}
	if err := validateFloat("gamma", b.Gamma); err != nil {
		return err
	}
	if b.OIT.Window < 0 {
		return fmt.Errorf("oit.window must be non-negative, got %d", b.OIT.Window)
	}
	if b.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must be non-negative, got %d", b.MaxTicks)
	}
	seen := map[string]bool{}
	for _, u := range b.Users {
		if u.ID == "" {
			return fmt.Errorf("user entry missing id")
		}
		if seen[u.ID] {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		seen[u.ID] = true
	}
	seenApp := map[string]bool{}
	for _, a := range b.Apps {
		if a.ID == "" {
			return fmt.Errorf("application entry missing id")
		}
		if seenApp[a.ID] {
			return fmt.Errorf("duplicate application id %q", a.ID)
		}
		seenApp[a.ID] = true
	}
	return nil
}

// validateFloat checks that a float parameter is non-negative and finite.
func validateFloat(name string, val *float64) error {
	if val == nil {
		return nil
	}
	if math.IsNaN(*val) || math.IsInf(*val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, *val)
	}
	if *val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, *val)
	}
	return nil
}
