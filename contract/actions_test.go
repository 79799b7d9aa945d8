package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.pilab.hu/flow/domain"
)

func secondaryTypes(set domain.ActionSet) []domain.ActionType {
	if len(set.Secondary) == 0 {
		return nil
	}
	types := make([]domain.ActionType, 0, len(set.Secondary))
	for _, a := range set.Secondary {
		types = append(types, a.Type)
	}
	return types
}

func TestActionsFor(t *testing.T) {
	tests := []struct {
		nodeType      domain.NodeType
		wantPrimary   domain.ActionType
		wantSecondary []domain.ActionType
	}{
		{domain.NodeTypeStart, domain.ActionContinue, nil},
		{domain.NodeTypeIdentifier, domain.ActionSubmit, []domain.ActionType{domain.ActionBack}},
		{domain.NodeTypeAuthMethod, domain.ActionSubmit, []domain.ActionType{domain.ActionBack}},
		{domain.NodeTypeMFA, domain.ActionSubmit, []domain.ActionType{domain.ActionBack}},
		{domain.NodeTypeConsent, domain.ActionSubmit, []domain.ActionType{domain.ActionBack, domain.ActionDeny}},
		{domain.NodeTypeEnd, domain.ActionComplete, nil},
		{domain.NodeTypeError, domain.ActionRetry, []domain.ActionType{domain.ActionBack, domain.ActionCancel}},
		{domain.NodeType("custom"), domain.ActionSubmit, []domain.ActionType{domain.ActionBack}},
	}
	for _, tt := range tests {
		t.Run(string(tt.nodeType), func(t *testing.T) {
			set := ActionsFor(tt.nodeType)
			assert.Equal(t, tt.wantPrimary, set.Primary.Type)
			assert.Equal(t, tt.wantSecondary, secondaryTypes(set))
		})
	}
}

func TestFeaturesForKnownProfiles(t *testing.T) {
	basic := FeaturesFor("human-basic")
	assert.Equal(t, domain.RBACModeSimple, basic.Policy.RBAC)
	assert.True(t, basic.Principals.Human)
	assert.False(t, basic.Principals.Service)
	assert.True(t, basic.AuthMethods.Password)
	assert.False(t, basic.AuthMethods.ExternalIDP)

	org := FeaturesFor("human-org")
	assert.Equal(t, domain.RBACModeFull, org.Policy.RBAC)
	assert.True(t, org.Policy.ABAC)
	assert.True(t, org.Policy.ReBAC)
	assert.True(t, org.AuthMethods.ExternalIDP)

	agent := FeaturesFor("ai-agent")
	assert.True(t, agent.Principals.AIAgent)
	assert.True(t, agent.Principals.AIMCP)
	assert.False(t, agent.Principals.Human)
	assert.True(t, agent.AuthMethods.DID)

	iot := FeaturesFor("iot-device")
	assert.True(t, iot.Principals.IoT)
	assert.Equal(t, domain.RBACModeSimple, iot.Policy.RBAC)
}

func TestFeaturesForUnknownProfileFallsBack(t *testing.T) {
	assert.Equal(t, FeaturesFor(DefaultProfileID), FeaturesFor("no-such-profile"))
	assert.Equal(t, FeaturesFor(DefaultProfileID), FeaturesFor(""))
}
