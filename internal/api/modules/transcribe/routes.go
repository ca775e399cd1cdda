package transcribe

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/ethanbaker/callsim/internal/api/respond"
	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/transcribe"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the standalone transcription route
func RegisterRoutes(g *gin.RouterGroup, transcriber transcribe.Transcriber, timeout time.Duration) {
	g.POST("/transcribe", func(c *gin.Context) {
		var req sdk.TranscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Could not parse request body", err)
			return
		}

		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			respond.BadRequest(c, "Audio must be base64 encoded", err)
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		text, err := transcriber.Transcribe(ctx, audio)
		if err != nil {
			respond.Error(c, "Failed to transcribe audio", err)
			return
		}

		c.JSON(sdk.NewSuccessResponse("Audio transcribed successfully", sdk.TranscribeResponse{Transcription: text}).AsGinResponse())
	})
}
