package domain

const (
	AdminTokenHeader = "authorization"
)

// SchedulerState is the lifecycle state of the sweep loop.
type SchedulerState int

const (
	SchedulerStopped SchedulerState = iota
	SchedulerRunning
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerStopped:
		return "stopped"
	case SchedulerRunning:
		return "running"
	default:
		return "unknown"
	}
}

// GenerationOutcome classifies how a manifestation's text was obtained.
type GenerationOutcome string

const (
	OutcomeGenerated    GenerationOutcome = "ok"
	OutcomeServiceError GenerationOutcome = "service_error"
	OutcomeMalformed    GenerationOutcome = "malformed"
)

// Settings is the static generator configuration exposed to the admin panel.
type Settings struct {
	Enabled  bool           `json:"enabled"`
	Interval string         `json:"interval"`
	Timezone string         `json:"timezone"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Slots    []SlotSettings `json:"slots"`
}

type SlotSettings struct {
	Slot Slot        `json:"slot"`
	Type ContentType `json:"type"`
}
