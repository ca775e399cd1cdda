package sessions

import (
	"fmt"

	"github.com/ethanbaker/callsim/internal/api/middleware"
	"github.com/ethanbaker/callsim/internal/api/respond"
	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type controller struct {
	manager *session.Manager
}

// getActive handles GET requests for the caller's active session
func (ctrl *controller) getActive(c *gin.Context) {
	active, err := ctrl.manager.GetActive(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respond.Error(c, "No active session", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session retrieved successfully", ToSDKSession(active)).AsGinResponse())
}

// start handles POST requests to start a session
func (ctrl *controller) start(c *gin.Context) {
	var req sdk.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Could not parse request body", err)
		return
	}

	created, err := ctrl.manager.Start(c.Request.Context(), middleware.OwnerID(c), req.Confirm)
	if err != nil {
		respond.Error(c, "Failed to start session", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session started successfully", ToSDKSession(created)).AsGinResponse())
}

// complete handles PATCH requests to complete a session
func (ctrl *controller) complete(c *gin.Context) {
	id, ok := ctrl.ownedSession(c)
	if !ok {
		return
	}

	completed, err := ctrl.manager.Complete(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, "Failed to complete session", err)
		return
	}

	c.JSON(sdk.NewSuccessResponse("Session completed successfully", ToSDKSession(completed)).AsGinResponse())
}

// getConversation handles GET requests for a session transcript
func (ctrl *controller) getConversation(c *gin.Context) {
	id, ok := ctrl.ownedSession(c)
	if !ok {
		return
	}

	entries, err := ctrl.manager.Transcript(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, "Failed to get conversation", err)
		return
	}

	resp := make([]sdk.ConversationEntry, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, sdk.ConversationEntry{
			ID:        entry.ID,
			Sender:    string(entry.Sender),
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		})
	}

	c.JSON(sdk.NewSuccessResponse("Conversation retrieved successfully", resp).AsGinResponse())
}

// ownedSession parses the :id parameter and checks that the caller owns the session.
// Sessions of other owners are reported as not found
func (ctrl *controller) ownedSession(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.BadRequest(c, "Invalid session id", err)
		return uuid.Nil, false
	}

	found, err := ctrl.manager.Get(c.Request.Context(), id)
	if err == nil && found.OwnerID != middleware.OwnerID(c) {
		err = fmt.Errorf("%w: session %s", session.ErrNotFound, id)
	}
	if err != nil {
		respond.Error(c, "Session not found", err)
		return uuid.Nil, false
	}

	return id, true
}

// ToSDKSession converts a session for the API. The part number and location are only
// included once the session is completed
func ToSDKSession(s *session.Session) sdk.Session {
	resp := sdk.Session{
		ID:              s.ID.String(),
		OwnerID:         s.OwnerID,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		CompletedAt:     s.CompletedAt,
		MachineModel:    s.Subject.MachineModel,
		PartDescription: s.Subject.PartDescription,
	}

	if !s.Active() {
		resp.Answer = &sdk.Answer{
			PartID:     s.Subject.PartID,
			Breadcrumb: s.Subject.Breadcrumb,
		}
	}

	return resp
}
