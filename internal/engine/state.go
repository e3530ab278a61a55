package engine

import "fmt"

// State is the layout lifecycle state.
type State int

const (
	// StateIdle: nothing ingested, or disposed.
	StateIdle State = iota
	// StateSeeded: primitives rebuilt and the simulation reseeded.
	StateSeeded
	// StateWarming: running warm-up ticks synchronously.
	StateWarming
	// StateStepping: advancing one tick per frame.
	StateStepping
	// StateCooled: the cooldown policy halted stepping. Only a new
	// ingestion restarts it.
	StateCooled
)

var stateNames = map[State]string{
	StateIdle:     "idle",
	StateSeeded:   "seeded",
	StateWarming:  "warming",
	StateStepping: "stepping",
	StateCooled:   "cooled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown layout state %q", text)
}
