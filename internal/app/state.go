package app

import (
	"fmt"
	"time"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

var stateNames = []string{"uninitialized", "loading", "ready", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Status is a point-in-time view of the lifecycle, safe to hand to
// observers and serialise.
type Status struct {
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Rejected   int       `json:"rejected"`
	Reloading  bool      `json:"reloading"`
	Source     string    `json:"source"`
	Backend    string    `json:"backend"`
	Message    string    `json:"message,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}
