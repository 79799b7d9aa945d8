package domain

// UIContract is the client-facing description of the current flow step: what
// to render, which actions are available and which features are enabled. It
// is immutable once generated.
type UIContract struct {
	Version      string       `json:"version"`
	State        string       `json:"state"`
	Intent       string       `json:"intent,omitempty"`
	Features     FeatureFlags `json:"features"`
	Capabilities []Capability `json:"capabilities"`
	Context      FlowContext  `json:"context"`
	Actions      ActionSet    `json:"actions"`
}

// Capability is the public projection of a ResolvedCapability, with resolver
// internals stripped.
type Capability struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Stability  string           `json:"stability,omitempty"`
	Required   bool             `json:"required"`
	Hints      map[string]any   `json:"hints,omitempty"`
	Validation []ValidationRule `json:"validation,omitempty"`
}

// RBACMode selects how role checks are evaluated for a profile.
type RBACMode string

const (
	RBACModeOff    RBACMode = "off"
	RBACModeSimple RBACMode = "simple"
	RBACModeFull   RBACMode = "full"
)

// FeatureFlags is the closed feature-flag bundle attached to a contract.
// Values come from the versioned profile table, never from request data.
type FeatureFlags struct {
	Policy      PolicyFlags     `json:"policy"`
	Principals  PrincipalFlags  `json:"principals"`
	AuthMethods AuthMethodFlags `json:"authMethods"`
}

// PolicyFlags fixes the policy mode per category.
type PolicyFlags struct {
	RBAC  RBACMode `json:"rbac"`
	ABAC  bool     `json:"abac"`
	ReBAC bool     `json:"rebac"`
}

// PrincipalFlags enables principal targets for the flow.
type PrincipalFlags struct {
	Human   bool `json:"human"`
	IoT     bool `json:"iot"`
	AIAgent bool `json:"aiAgent"`
	AIMCP   bool `json:"aiMcp"`
	Service bool `json:"service"`
}

// AuthMethodFlags enables authentication methods for the flow.
type AuthMethodFlags struct {
	Passkey     bool `json:"passkey"`
	EmailCode   bool `json:"emailCode"`
	Password    bool `json:"password"`
	ExternalIDP bool `json:"externalIdp"`
	DID         bool `json:"did"`
}

// FlowContext carries presentation context for the current step. All fields
// are optional; the generator merges caller-supplied values with values
// derived from the session state, caller values winning.
type FlowContext struct {
	Branding     *BrandingContext `json:"branding,omitempty"`
	User         *UserContext     `json:"user,omitempty"`
	Organization *OrgContext      `json:"organization,omitempty"`
	Client       *ClientContext   `json:"client,omitempty"`
	Error        *ErrorContext    `json:"error,omitempty"`
	Locale       string           `json:"locale,omitempty"`
}

// BrandingContext is tenant-level visual identity for the flow UI.
type BrandingContext struct {
	ProductName  string `json:"productName,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
}

// UserContext identifies the (possibly still pending) user of the session.
type UserContext struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// OrgContext identifies the organization the flow runs under.
type OrgContext struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ClientContext identifies the OAuth client that started the flow.
type ClientContext struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// ErrorContext carries a step-level error for the UI to display.
type ErrorContext struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ActionType enumerates the actions a contract can offer.
type ActionType string

const (
	ActionContinue ActionType = "CONTINUE"
	ActionSubmit   ActionType = "SUBMIT"
	ActionComplete ActionType = "COMPLETE"
	ActionRetry    ActionType = "RETRY"
	ActionBack     ActionType = "BACK"
	ActionDeny     ActionType = "DENY"
	ActionCancel   ActionType = "CANCEL"
)

// Action is one user-invokable action on the current step.
type Action struct {
	Type ActionType `json:"type"`
}

// ActionSet is the contract's action surface: exactly one primary action and
// zero or more secondary actions.
type ActionSet struct {
	Primary   Action   `json:"primary"`
	Secondary []Action `json:"secondary,omitempty"`
}
