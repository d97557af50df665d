package models

// ChatRequest is the body of POST /api/chat and POST /chat
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	Type    string `json:"type,omitempty"` // dialogue type, POST /chat only
}

// ChatResponse carries the raw completion text
type ChatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status,omitempty"` // POST /chat only
}

// POST /chat statuses
const (
	ChatContinue = "continue"
	ChatComplete = "complete"
	ChatError    = "error"
)

// ErrorResponse is returned by every handler on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// Dialogue types accepted by POST /end_dialogue
const (
	DialogueUserInitiated   = "user_initiated"
	DialogueSystemInitiated = "system_initiated"
)

type EndDialogueRequest struct {
	Type string `json:"type"`
}

type EndDialogueResponse struct {
	Summary  interface{} `json:"summary,omitempty"`
	Response string      `json:"response,omitempty"` // set on failure
	Status   string      `json:"status"`             // success, error
}

// ReorderRequest moves a contact method from one position to another
type ReorderRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// SimulateErrorRequest names the step to force into error
type SimulateErrorRequest struct {
	Index *int `json:"index" binding:"required"`
}

// MeetingRequest is the body of POST /meetings and PUT /meetings/:id
type MeetingRequest struct {
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Duration     int      `json:"duration"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
}
