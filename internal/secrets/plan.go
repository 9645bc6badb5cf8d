package secrets

import "strings"

// DeactivatedPrefix marks a deactivated secret value. Deactivation keeps
// the old value behind the prefix so it can be recovered.
const DeactivatedPrefix = "DEACTIVATED:"

// IsDeactivated reports whether v carries the deactivation prefix.
func IsDeactivated(v string) bool {
	return strings.HasPrefix(v, DeactivatedPrefix)
}

// Action is what a Change does to a secret key.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionDeactivate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDeactivate:
		return "deactivate"
	default:
		return "none"
	}
}

// Reasons a Change has ActionNone.
const (
	ReasonNothingToDeactivate = "does not exist"
	ReasonAlreadyDeactivated  = "already deactivated"
	ReasonUnchanged           = "same as current"
)

// Change is the planned mutation of one secret key.
type Change struct {
	Action Action

	// Value is the value the key will hold after the change. Empty for
	// ActionNone.
	Value string

	// Reason explains an ActionNone plan.
	Reason string
}

// Plan decides how to move a key from its current state to target. A nil
// target means deactivate.
func Plan(current string, exists bool, target *string) Change {
	if target == nil {
		switch {
		case !exists:
			return Change{Action: ActionNone, Reason: ReasonNothingToDeactivate}
		case IsDeactivated(current):
			return Change{Action: ActionNone, Reason: ReasonAlreadyDeactivated}
		default:
			return Change{Action: ActionDeactivate, Value: DeactivatedPrefix + current}
		}
	}
	switch {
	case !exists:
		return Change{Action: ActionCreate, Value: *target}
	case current == *target:
		return Change{Action: ActionNone, Reason: ReasonUnchanged}
	default:
		return Change{Action: ActionUpdate, Value: *target}
	}
}
