package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPlan(t *testing.T) {
	tests := []struct {
		name    string
		current string
		exists  bool
		target  *string
		want    Change
	}{
		{"create", "", false, strPtr("v"), Change{Action: ActionCreate, Value: "v"}},
		{"update", "old", true, strPtr("new"), Change{Action: ActionUpdate, Value: "new"}},
		{"unchanged", "same", true, strPtr("same"), Change{Action: ActionNone, Reason: ReasonUnchanged}},
		{"deactivate", "live", true, nil, Change{Action: ActionDeactivate, Value: "DEACTIVATED:live"}},
		{"deactivate empty", "", true, nil, Change{Action: ActionDeactivate, Value: "DEACTIVATED:"}},
		{"already deactivated", "DEACTIVATED:live", true, nil, Change{Action: ActionNone, Reason: ReasonAlreadyDeactivated}},
		{"nothing to deactivate", "", false, nil, Change{Action: ActionNone, Reason: ReasonNothingToDeactivate}},
		{"reactivate by update", "DEACTIVATED:live", true, strPtr("live"), Change{Action: ActionUpdate, Value: "live"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Plan(tc.current, tc.exists, tc.target))
		})
	}
}

func TestPlan_AppliedTwiceIsNoop(t *testing.T) {
	first := Plan("old", true, strPtr("new"))
	assert.Equal(t, ActionUpdate, first.Action)
	assert.Equal(t, ActionNone, Plan(first.Value, true, strPtr("new")).Action)

	deact := Plan("live", true, nil)
	assert.Equal(t, ActionDeactivate, deact.Action)
	assert.Equal(t, ActionNone, Plan(deact.Value, true, nil).Action)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "create", ActionCreate.String())
	assert.Equal(t, "update", ActionUpdate.String())
	assert.Equal(t, "deactivate", ActionDeactivate.String())
	assert.Equal(t, "none", ActionNone.String())
}
