package sessions

import (
	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the session lifecycle routes. The group must already carry the
// API key and owner middleware
func RegisterRoutes(g *gin.RouterGroup, manager *session.Manager) {
	ctrl := &controller{manager: manager}

	group := g.Group("/sessions")
	group.GET("/active", ctrl.getActive)                 // Get the caller's active session
	group.POST("", ctrl.start)                           // Start a new session
	group.PATCH("/:id/complete", ctrl.complete)          // Complete a session
	group.GET("/:id/conversation", ctrl.getConversation) // Get a session transcript
}
