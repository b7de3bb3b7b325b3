// Package connectivity derives the advisory sync indicator (offline / syncing / online)
// from the host's connectivity signal. It never gates reads or writes.
package connectivity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is what the indicator shows.
type Status int

const (
	Offline Status = iota
	Syncing
	Online
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{Offline, Syncing, Online}

func (s Status) String() string {
	switch s {
	case Offline:
		return "offline"
	case Syncing:
		return "syncing"
	case Online:
		return "online"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for _, st := range AllStatuses {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connectivity status %q", name)
}

// State is the indicator as rendered: its status and whether it is shown at all.
type State struct {
	Status  Status `json:"status"`
	Visible bool   `json:"visible"`
}

// InitialState is the state before the first evaluation: online and hidden.
var InitialState = State{Status: Online, Visible: false}

// Default delays of the online transition.
const (
	DefaultSyncDelay = 1000 * time.Millisecond
	DefaultHideDelay = 1200 * time.Millisecond
)
