package model

import "time"

// AssignmentExport is the top-level JSON structure for assignment export.
type AssignmentExport struct {
	AssignmentID string          `json:"assignment_id"`
	ExportedAt   time.Time       `json:"exported_at"`
	NumProblems  int             `json:"num_problems"`
	Sessions     []SessionExport `json:"sessions"`
}

// SessionExport holds one tutoring session's data for export.
type SessionExport struct {
	SessionID     string            `json:"session_id"`
	UserID        string            `json:"user_id"`
	Status        SessionStatus     `json:"status"`
	ProblemNumber int               `json:"problem_number"`
	StartedAt     time.Time         `json:"started_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Conversation  []ConversationMsg `json:"conversation"`
	Completed     []int             `json:"completed_problems"`
}

// ConversationMsg is a single message in an exported conversation.
type ConversationMsg struct {
	Role    string       `json:"role"`
	Content string       `json:"content"`
	State   StudentState `json:"state,omitempty"`
	Mode    TutoringMode `json:"mode,omitempty"`
	At      time.Time    `json:"at"`
}
