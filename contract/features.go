package contract

import "go.pilab.hu/flow/domain"

// DefaultProfileID is the fallback profile for unknown profile ids.
const DefaultProfileID = "human-basic"

// profiles is the closed, versioned feature-flag table. It is a policy
// artifact: values are fixed per profile and never computed from request
// data. Changing a profile is a contract-version concern, not a runtime one.
var profiles = map[string]domain.FeatureFlags{
	"human-basic": {
		Policy: domain.PolicyFlags{
			RBAC:  domain.RBACModeSimple,
			ABAC:  false,
			ReBAC: false,
		},
		Principals: domain.PrincipalFlags{
			Human: true,
		},
		AuthMethods: domain.AuthMethodFlags{
			Passkey:   true,
			EmailCode: true,
			Password:  true,
		},
	},
	"human-org": {
		Policy: domain.PolicyFlags{
			RBAC:  domain.RBACModeFull,
			ABAC:  true,
			ReBAC: true,
		},
		Principals: domain.PrincipalFlags{
			Human:   true,
			Service: true,
		},
		AuthMethods: domain.AuthMethodFlags{
			Passkey:     true,
			EmailCode:   true,
			Password:    true,
			ExternalIDP: true,
		},
	},
	"ai-agent": {
		Policy: domain.PolicyFlags{
			RBAC:  domain.RBACModeFull,
			ABAC:  true,
			ReBAC: false,
		},
		Principals: domain.PrincipalFlags{
			AIAgent: true,
			AIMCP:   true,
			Service: true,
		},
		AuthMethods: domain.AuthMethodFlags{
			DID: true,
		},
	},
	"iot-device": {
		Policy: domain.PolicyFlags{
			RBAC:  domain.RBACModeSimple,
			ABAC:  false,
			ReBAC: false,
		},
		Principals: domain.PrincipalFlags{
			IoT:     true,
			Service: true,
		},
		AuthMethods: domain.AuthMethodFlags{
			DID: true,
		},
	},
}

// FeaturesFor returns the feature flags for a profile id, falling back to
// DefaultProfileID for unknown ids.
func FeaturesFor(profileID string) domain.FeatureFlags {
	if flags, ok := profiles[profileID]; ok {
		return flags
	}
	return profiles[DefaultProfileID]
}
