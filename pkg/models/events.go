package models

// Channel event names
const (
	EventMessage             = "message"
	EventCoordinationMessage = "coordination_message"
	EventProgressUpdate      = "progress_update"
	EventChatMessage         = "chat_message"
	EventMockUserMessage     = "mock_user_message"
)

// Message author types
const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
	MessageSystem    = "system"
)

// Envelope wraps every frame on the message channel
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TimePreference is an optional suggestion attached to an assistant message
type TimePreference struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Title     string `json:"title,omitempty"`
}

// ChannelMessage is the payload of an inbound "message" event
type ChannelMessage struct {
	Message        string          `json:"message"`
	Type           string          `json:"type"`
	UserID         string          `json:"user_id,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	TimePreference *TimePreference `json:"time_preference,omitempty"`
}

// CoordinationMessage is the payload of a "coordination_message" event
type CoordinationMessage struct {
	TargetUserID string `json:"target_user_id"`
	Message      string `json:"message"`
	Type         string `json:"type"`
}

// ChatMessagePayload is sent by clients as "chat_message"
type ChatMessagePayload struct {
	Message string `json:"message"`
}

// MockUserMessagePayload is sent by clients as "mock_user_message"
type MockUserMessagePayload struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}
