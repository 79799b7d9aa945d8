package contract

import "go.pilab.hu/flow/domain"

// primaryActions is the closed node-type to primary-action table.
var primaryActions = map[domain.NodeType]domain.ActionType{
	domain.NodeTypeStart:      domain.ActionContinue,
	domain.NodeTypeIdentifier: domain.ActionSubmit,
	domain.NodeTypeAuthMethod: domain.ActionSubmit,
	domain.NodeTypeMFA:        domain.ActionSubmit,
	domain.NodeTypeConsent:    domain.ActionSubmit,
	domain.NodeTypeEnd:        domain.ActionComplete,
	domain.NodeTypeError:      domain.ActionRetry,
}

// ActionsFor returns the action set for a node type. Unrecognized types get a
// SUBMIT primary. BACK is offered everywhere except on start and end nodes;
// consent nodes additionally offer DENY and error nodes CANCEL.
func ActionsFor(nodeType domain.NodeType) domain.ActionSet {
	primary, ok := primaryActions[nodeType]
	if !ok {
		primary = domain.ActionSubmit
	}

	var secondary []domain.Action
	if nodeType != domain.NodeTypeStart && nodeType != domain.NodeTypeEnd {
		secondary = append(secondary, domain.Action{Type: domain.ActionBack})
	}
	switch nodeType {
	case domain.NodeTypeConsent:
		secondary = append(secondary, domain.Action{Type: domain.ActionDeny})
	case domain.NodeTypeError:
		secondary = append(secondary, domain.Action{Type: domain.ActionCancel})
	}

	return domain.ActionSet{
		Primary:   domain.Action{Type: primary},
		Secondary: secondary,
	}
}
