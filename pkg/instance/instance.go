// Package instance defines the compute instance model for rouse.
package instance

// Tag is a single key/value label attached to an instance.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TagRequirement is the ordered set of tags an instance must carry to match.
type TagRequirement []Tag

// PowerState is the canonical lifecycle phase of an instance.
type PowerState string

const (
	StatePending      PowerState = "pending"
	StateRunning      PowerState = "running"
	StateShuttingDown PowerState = "shutting-down"
	StateTerminated   PowerState = "terminated"
	StateStopping     PowerState = "stopping"
	StateStopped      PowerState = "stopped"
	StateUnknown      PowerState = "unknown"
)

// ClassifyState maps a provider status to a canonical PowerState.
// Anything unrecognized is StateUnknown.
func ClassifyState(raw string) PowerState {
	switch s := PowerState(raw); s {
	case StatePending, StateRunning, StateShuttingDown, StateTerminated, StateStopping, StateStopped:
		return s
	default:
		return StateUnknown
	}
}

// Instance is a raw inventory record as returned by a provider.
type Instance struct {
	ID       string            `json:"id"`
	Tags     map[string]string `json:"tags"`
	RawState string            `json:"raw_state"`
	PublicIP string            `json:"public_ip,omitempty"` // empty when the instance has no public address
}

// View is a read-only snapshot of one instance, rebuilt on every poll.
type View struct {
	ID       string
	State    PowerState
	PublicIP string
}

// NewView projects an inventory record. ok is false when the record lacks
// an id or a state and should be skipped.
func NewView(inst Instance) (View, bool) {
	if inst.ID == "" || inst.RawState == "" {
		return View{}, false
	}
	return View{
		ID:       inst.ID,
		State:    ClassifyState(inst.RawState),
		PublicIP: inst.PublicIP,
	}, true
}

// Result is the outcome of a successful reconciliation.
type Result struct {
	ID       string     `json:"id"`
	State    PowerState `json:"state"`
	PublicIP string     `json:"ip"`
	Actions  []string   `json:"actions"`
}
