package domain

// NodeType classifies a step in the compiled flow graph.
type NodeType string

const (
	NodeTypeStart      NodeType = "start"
	NodeTypeIdentifier NodeType = "identifier"
	NodeTypeAuthMethod NodeType = "auth_method"
	NodeTypeMFA        NodeType = "mfa"
	NodeTypeConsent    NodeType = "consent"
	NodeTypeEnd        NodeType = "end"
	NodeTypeError      NodeType = "error"
)

// CompiledNode is one resolved step of a flow graph, produced by the flow
// compiler. The engine never computes nodes itself; it receives them from the
// protocol layer.
type CompiledNode struct {
	ID           string               `json:"id"`
	Type         NodeType             `json:"type"`
	Intent       string               `json:"intent,omitempty"`
	Capabilities []ResolvedCapability `json:"capabilities,omitempty"`
}

// ResolvedCapability is a capability as the compiler's resolvers emit it.
// ResolverMeta is internal bookkeeping and must not reach clients.
type ResolvedCapability struct {
	Type         string           `json:"type"`
	ID           string           `json:"id"`
	Stability    string           `json:"stability,omitempty"`
	Required     bool             `json:"required"`
	Hints        map[string]any   `json:"hints,omitempty"`
	Validation   []ValidationRule `json:"validation,omitempty"`
	ResolverMeta map[string]any   `json:"resolverMeta,omitempty"`
}

// ValidationRule is a declarative input constraint the front end enforces.
type ValidationRule struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}
