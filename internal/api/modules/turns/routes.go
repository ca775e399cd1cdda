package turns

import (
	"github.com/ethanbaker/callsim/pkg/turn"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes registers the turn streaming route
func RegisterRoutes(g *gin.RouterGroup, pipeline *turn.Pipeline, logger logrus.FieldLogger) {
	ctrl := &controller{pipeline: pipeline, log: logger}

	g.POST("/turns", ctrl.postTurn) // Run a turn and stream its audio
}
