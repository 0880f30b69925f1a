package models

import "time"

// Conversation field names as stored.
const (
	FieldParticipants = "participants"
	FieldUnreadCount  = "unreadCount"
	FieldDeleted      = "deleted"
	FieldArchived     = "archived"
)

// Conversation is a message thread. Participants is read by clients as an
// ordered list.
type Conversation struct {
	ID              string          `mapstructure:"-" json:"id"`
	Participants    []string        `mapstructure:"participants" json:"participants"`
	UnreadCount     map[string]int  `mapstructure:"unreadCount" json:"unreadCount,omitempty"`
	Deleted         map[string]bool `mapstructure:"deleted" json:"deleted,omitempty"`
	Archived        map[string]bool `mapstructure:"archived" json:"archived,omitempty"`
	LastMessage     string          `mapstructure:"lastMessage" json:"lastMessage,omitempty"`
	LastMessageTime *time.Time      `mapstructure:"lastMessageTime" json:"lastMessageTime,omitempty"`
}

// Message lives in the conversation's messages subcollection.
type Message struct {
	ID        string     `mapstructure:"-" json:"id"`
	SenderID  string     `mapstructure:"senderId" json:"senderId"`
	Body      string     `mapstructure:"body" json:"body"`
	Timestamp *time.Time `mapstructure:"timestamp" json:"timestamp,omitempty"`
}
