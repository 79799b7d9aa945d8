package echo

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/flow/api"
	"go.pilab.hu/flow/contract"
	"go.pilab.hu/flow/domain"
	ferrors "go.pilab.hu/flow/errors"
	"go.pilab.hu/flow/flowengine"
)

// FlowAPI exposes the flow session engine over HTTP.
type FlowAPI struct {
	engine *flowengine.Engine
}

// NewFlowAPI initializes the flow API.
func NewFlowAPI(engine *flowengine.Engine) *FlowAPI {
	return &FlowAPI{engine: engine}
}

// RegisterRoutes registers the flow session routes.
func (fa *FlowAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/flow/sessions", fa.InitHandler)
	e.GET("/flow/sessions/:id", fa.GetStateHandler)
	e.POST("/flow/sessions/:id/submit", fa.SubmitHandler)
	e.GET("/flow/sessions/:id/requests/:requestId", fa.CheckRequestHandler)
	e.DELETE("/flow/sessions/:id", fa.CancelHandler)

	e.POST("/flow/contract", fa.GenerateContractHandler)
}

// InitHandler creates a new flow session and returns its public state view.
func (fa *FlowAPI) InitHandler(c echo.Context) error {
	var req api.InitSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("Malformed request body"))
	}
	if req.FlowID == "" || req.EntryNodeID == "" {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("flowId and entryNodeId are required"))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	view, err := fa.engine.Init(c.Request().Context(), flowengine.InitParams{
		SessionID:   sessionID,
		FlowID:      req.FlowID,
		FlowType:    req.FlowType,
		TenantID:    req.TenantID,
		ClientID:    req.ClientID,
		EntryNodeID: req.EntryNodeID,
		TTL:         time.Duration(req.TTLMs) * time.Millisecond,
		OAuthParams: req.OAuthParams,
	})
	if err != nil {
		return flowErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// SubmitHandler applies one step transition, replaying idempotently when the
// request id was already processed.
func (fa *FlowAPI) SubmitHandler(c echo.Context) error {
	var req api.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("Malformed request body"))
	}
	if req.RequestID == "" || req.NextNodeID == "" {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("requestId and nextNodeId are required"))
	}
	if err := req.Result.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest(err.Error()))
	}

	outcome, err := fa.engine.Submit(c.Request().Context(), c.Param("id"), flowengine.SubmitParams{
		RequestID:           req.RequestID,
		CapabilityID:        req.CapabilityID,
		Response:            req.Response,
		Result:              req.Result,
		NextNodeID:          req.NextNodeID,
		AuthenticatedUserID: req.AuthenticatedUserID,
	})
	if err != nil {
		return flowErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, api.SubmitResponse{
		Result:   outcome.Result,
		Replayed: outcome.Replayed,
	})
}

// CheckRequestHandler probes the idempotency log without mutating anything.
func (fa *FlowAPI) CheckRequestHandler(c echo.Context) error {
	outcome, err := fa.engine.CheckRequest(c.Request().Context(), c.Param("id"), c.Param("requestId"))
	if err != nil {
		return flowErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, api.CheckRequestResponse{
		Found:  outcome.Found,
		Result: outcome.Result,
		State:  outcome.State,
	})
}

// GetStateHandler returns the redacted public state view.
func (fa *FlowAPI) GetStateHandler(c echo.Context) error {
	view, err := fa.engine.GetState(c.Request().Context(), c.Param("id"))
	if err != nil {
		return flowErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// CancelHandler deletes the session. Always succeeds for missing sessions.
func (fa *FlowAPI) CancelHandler(c echo.Context) error {
	if err := fa.engine.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return flowErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GenerateContractHandler produces a UI contract for a compiled node. The
// flow orchestrator calls this with the compiler's output; generation itself
// is pure, so the handler is safe to retry.
func (fa *FlowAPI) GenerateContractHandler(c echo.Context) error {
	var req api.GenerateContractRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Node.ID == "" || req.FlowID == "" {
		return c.JSON(http.StatusBadRequest, ferrors.NewInvalidRequest("node.id and flowId are required"))
	}

	uiContract := contract.Generate(&req.Node, req.FlowID, req.State, req.Context, req.ProfileID)
	return c.JSON(http.StatusOK, uiContract)
}

// flowErrorResponse maps engine failures to protocol responses: conflict 409,
// not-found 404, expired 410, anything else 500.
func flowErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionAlreadyExists):
		return c.JSON(http.StatusConflict, ferrors.NewSessionConflict("A live session already exists for this id"))
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ferrors.NewSessionNotFound("No session exists for this id; restart the flow"))
	case errors.Is(err, domain.ErrSessionExpired):
		return c.JSON(http.StatusGone, ferrors.NewSessionExpired("The session has expired; restart the flow"))
	default:
		log.Ctx(c.Request().Context()).Error().Err(err).Msg("flow engine operation failed")
		return c.JSON(http.StatusInternalServerError, ferrors.NewServerError("Internal error"))
	}
}
