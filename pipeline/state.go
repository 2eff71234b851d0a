package pipeline

import "fmt"

// State is a pipeline run state. Transitions are strictly sequential.
type State int

const (
	Idle State = iota
	Researching
	ClassifyingStyle
	Planning
	Generating
	RenderingImages
	Publishing
	Done
	Failed
	Canceled
)

var stateNames = [...]string{
	Idle:             "idle",
	Researching:      "researching",
	ClassifyingStyle: "classifying_style",
	Planning:         "planning",
	Generating:       "generating",
	RenderingImages:  "rendering_images",
	Publishing:       "publishing",
	Done:             "done",
	Failed:           "failed",
	Canceled:         "canceled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Canceled
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", text)
}
