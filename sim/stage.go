package sim

// InteractionStage identifies a single stage of a multi-stage Interaction.
// Ordering by numeric value defines the stage pipeline: a USER_PROMPT may
// be followed by zero or more AGENT stages and a FINAL stage.
type InteractionStage int

const (
	StageUserPrompt InteractionStage = iota
	StageAgent1
	StageAgent2
	StageFinal
)

func (s InteractionStage) String() string {
	switch s {
	case StageUserPrompt:
		return "USER_PROMPT"
	case StageAgent1:
		return "AGENT_1"
	case StageAgent2:
		return "AGENT_2"
	case StageFinal:
		return "FINAL"
	default:
		return "UNKNOWN"
	}
}

// ParseStage converts a stage name (as written in scenario YAML) to its
// InteractionStage. Panics on an unrecognized name, matching the package's
// fail-fast-on-programmer-error convention.
func ParseStage(name string) InteractionStage {
	switch name {
	case "USER_PROMPT":
		return StageUserPrompt
	case "AGENT_1":
		return StageAgent1
	case "AGENT_2":
		return StageAgent2
	case "FINAL":
		return StageFinal
	default:
		panic("sim: unknown interaction stage " + name)
	}
}
