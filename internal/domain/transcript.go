package domain

import "time"

// Transcript is the archived history of a finished conversation.
type Transcript struct {
	TranscriptID string    `json:"transcript_id"`
	SessionID    string    `json:"session_id"`
	Reason       string    `json:"reason"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Stats        Stats     `json:"stats"`
	Messages     []Message `json:"messages,omitempty"`
}

// Reasons a transcript was archived.
const (
	TranscriptReasonDisconnect = "disconnect"
	TranscriptReasonEnd        = "end"
	TranscriptReasonRestart    = "restart"
	TranscriptReasonFailure    = "failure"
)
