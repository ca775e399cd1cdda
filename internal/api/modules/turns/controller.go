package turns

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethanbaker/callsim/internal/api/middleware"
	"github.com/ethanbaker/callsim/internal/api/respond"
	"github.com/ethanbaker/callsim/pkg/reply"
	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/turn"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContentType is the media type of a turn stream
const ContentType = "application/x-ndjson"

type controller struct {
	pipeline *turn.Pipeline
	log      logrus.FieldLogger
}

// postTurn prepares a turn and streams one {"audio": ...} line per segment. Errors before the
// first byte are JSON error responses; errors after it are a final {"error", "stage"} line
func (ctrl *controller) postTurn(c *gin.Context) {
	var body sdk.TurnRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.BadRequest(c, "Could not parse request body", err)
		return
	}

	req, err := toTurnRequest(middleware.OwnerID(c), body)
	if err != nil {
		respond.BadRequest(c, "Invalid turn request", err)
		return
	}

	t, err := ctrl.pipeline.Prepare(c.Request.Context(), req)
	if err != nil {
		respond.Error(c, "Failed to run turn", err)
		return
	}
	defer t.Close()

	log := utils.Component(ctrl.log, "api").WithField("turn", t.ID)

	c.Header("Content-Type", ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for segment, err := range t.Stream() {
		if err != nil {
			if werr := writeChunk(c, errorChunk(err)); werr != nil {
				log.WithError(werr).Debug("could not write error line")
			}
			return
		}

		chunk := sdk.TurnChunk{Audio: base64.StdEncoding.EncodeToString(segment.Audio)}
		if err := writeChunk(c, chunk); err != nil {
			log.WithError(err).Warn("client went away mid-stream")
			return
		}
	}
}

// writeChunk writes one NDJSON line and flushes it to the client
func writeChunk(c *gin.Context, chunk sdk.TurnChunk) error {
	line, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := c.Writer.Write(append(line, '\n')); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

func errorChunk(err error) sdk.TurnChunk {
	chunk := sdk.TurnChunk{Error: err.Error(), Stage: string(turn.StageSynthesis)}

	var stageErr *turn.StageError
	if errors.As(err, &stageErr) {
		chunk.Stage = string(stageErr.Stage)
	}
	return chunk
}

// toTurnRequest validates the wire request before anything reaches the pipeline
func toTurnRequest(owner string, body sdk.TurnRequest) (turn.Request, error) {
	mode, err := reply.ParseMode(body.Mode)
	if err != nil {
		return turn.Request{}, err
	}

	req := turn.Request{
		Owner: owner,
		Mode:  mode,
		Text:  body.Text,
	}

	if id := strings.TrimSpace(body.SessionID); id != "" {
		req.SessionID, err = uuid.Parse(id)
		if err != nil {
			return turn.Request{}, fmt.Errorf("invalid session_id: %w", err)
		}
	}

	if body.Audio != "" {
		req.Audio, err = base64.StdEncoding.DecodeString(body.Audio)
		if err != nil {
			return turn.Request{}, fmt.Errorf("audio must be base64 encoded: %w", err)
		}
	}

	return req, req.Validate()
}
