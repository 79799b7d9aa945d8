package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const service = "flow-engine"

// Audit actions recorded by the engine.
const (
	ActionSessionInitialized = "flow.session_initialized"
	ActionStepApplied        = "flow.step_applied"
	ActionSessionCancelled   = "flow.session_cancelled"
	ActionSessionExpired     = "flow.session_expired"
)

// Event represents an audit log event for a flow session.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	Session   string    `json:"session,omitempty"`
	Flow      string    `json:"flow,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var auditLogger = log.Output(os.Stdout).With().Logger()

// Log records an audit event. If a separate audit destination is needed
// (e.g. a dedicated file or sink), reconfigure auditLogger at startup.
func Log(action, sessionID, flowID, details string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Service:   service,
		Action:    action,
		Session:   sessionID,
		Flow:      flowID,
		Details:   details,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	evt := auditLogger.Log().
		Time("timestamp", event.Timestamp).
		Str("service", event.Service).
		Str("action", event.Action).
		Bool("success", event.Success)
	if event.Session != "" {
		evt = evt.Str("session", event.Session)
	}
	if event.Flow != "" {
		evt = evt.Str("flow", event.Flow)
	}
	if event.Details != "" {
		evt = evt.Str("details", event.Details)
	}
	if event.Error != "" {
		evt = evt.Str("error", event.Error)
	}
	evt.Msg("audit")
}
