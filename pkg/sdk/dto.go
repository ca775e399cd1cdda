package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Session DTOs */

// StartSessionRequest represents the request body for starting a rehearsal
type StartSessionRequest struct {
	Confirm string `json:"confirm"` // Must equal the server's confirmation phrase
}

// Session represents a rehearsal session. The part number is only revealed once the session
// is completed
type Session struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	MachineModel    string  `json:"machine_model"`
	PartDescription string  `json:"part_description"`
	Answer          *Answer `json:"answer,omitempty"`
}

// Answer is the hidden half of a session's subject
type Answer struct {
	PartID     string `json:"part_id"`
	Breadcrumb string `json:"breadcrumb"`
}

// ConversationEntry is one line of a session transcript
type ConversationEntry struct {
	ID        uint      `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

/** Turn DTOs */

// TranscribeRequest carries a base64 encoded recording
type TranscribeRequest struct {
	Audio string `json:"audio" binding:"required"`
}

// TranscribeResponse is the text of a recording
type TranscribeResponse struct {
	Transcription string `json:"transcription"`
}

// TurnRequest starts a turn. Exactly one of Audio (base64) and Text is set
type TurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Mode      string `json:"mode"` // "interactive" (default) or "scripted"
	Audio     string `json:"audio,omitempty"`
	Text      string `json:"text,omitempty"`
}

// TurnChunk is one NDJSON line of a turn stream: an audio segment, or a final error
type TurnChunk struct {
	Audio string `json:"audio,omitempty"`
	Error string `json:"error,omitempty"`
	Stage string `json:"stage,omitempty"`
}
