package models

import (
	"time"
)

const (
	MeetingUpcoming = "upcoming"
	MeetingPast     = "past"
)

// Meeting represents a scheduled meeting
type Meeting struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Date         string    `gorm:"column:meeting_date;type:varchar(20)" json:"date"` // YYYY-MM-DD
	Time         string    `gorm:"column:meeting_time;type:varchar(10)" json:"time"` // HH:MM
	Duration     int       `json:"duration"`                                         // minutes
	Location     string    `gorm:"type:varchar(255)" json:"location,omitempty"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	Participants []string  `gorm:"serializer:json;type:text" json:"participants"`
	Status       string    `gorm:"type:varchar(20);default:'upcoming';index" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Meeting) TableName() string {
	return "meetings"
}

// MockUser is a simulated participant the coordination flow talks to
type MockUser struct {
	ID           string         `gorm:"primaryKey;type:varchar(64)" json:"id" yaml:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name" yaml:"name"`
	Role         string         `gorm:"type:varchar(100)" json:"role" yaml:"role"`
	Email        string         `gorm:"type:varchar(255)" json:"email,omitempty" yaml:"email"`
	Availability []Availability `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"availability,omitempty" yaml:"availability"`
}

func (MockUser) TableName() string {
	return "mock_users"
}

// Availability is a free slot of a mock user
type Availability struct {
	ID     uint      `gorm:"primaryKey" json:"id" yaml:"-"`
	UserID string    `gorm:"index;type:varchar(64)" json:"user_id" yaml:"-"`
	Start  time.Time `gorm:"column:starts_at;not null" json:"start" yaml:"start"`
	End    time.Time `gorm:"column:ends_at;not null" json:"end" yaml:"end"`
}

func (Availability) TableName() string {
	return "availabilities"
}

// ConversationMessage is one line of a mock user's conversation history
type ConversationMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;type:varchar(64);not null" json:"user_id"`
	Role      string    `gorm:"type:varchar(20)" json:"role"` // user, assistant, system
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

// All lists every model handled by auto-migration and data copies.
func All() []interface{} {
	return []interface{}{
		&Meeting{},
		&MockUser{},
		&Availability{},
		&ConversationMessage{},
	}
}
