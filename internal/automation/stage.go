package automation

import "fmt"

// Stage is a state of the workflow state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageActivatingWindow
	StageNavigating
	StageRenavigating
	StageAwaitingPageLoad
	StageClickingSignTab
	StageAwaitingPanelLoad
	StageClickingSignButton
	StageCapturingProof
	StageDone
)

var stageNames = [...]string{
	StageIdle:               "Idle",
	StageActivatingWindow:   "ActivatingWindow",
	StageNavigating:         "Navigating",
	StageRenavigating:       "Renavigating",
	StageAwaitingPageLoad:   "AwaitingPageLoad",
	StageClickingSignTab:    "ClickingSignTab",
	StageAwaitingPanelLoad:  "AwaitingPanelLoad",
	StageClickingSignButton: "ClickingSignButton",
	StageCapturingProof:     "CapturingProof",
	StageDone:               "Done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}
