// ABOUTME: Message is one immutable entry in a project's append-only log
// ABOUTME: Importance drives search ranking, higher surfaces first
package models

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultMessageType is used when no type is supplied
	DefaultMessageType = "text"
	// DefaultImportance is used when no importance is supplied
	DefaultImportance = 1
)

// Message represents a single stored message
type Message struct {
	ID          int64     `json:"id" yaml:"id"`
	ProjectID   int64     `json:"project_id" yaml:"project_id"`
	Sender      string    `json:"sender" yaml:"sender"`
	Content     string    `json:"content" yaml:"content"`
	MessageType string    `json:"message_type" yaml:"message_type"`
	Importance  int       `json:"importance" yaml:"importance"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewMessage builds a message, defaulting an empty type. Importance is stored as given.
func NewMessage(projectID int64, sender, content, messageType string, importance int) (*Message, error) {
	if strings.TrimSpace(sender) == "" {
		return nil, errors.New("sender cannot be empty")
	}
	if messageType == "" {
		messageType = DefaultMessageType
	}
	return &Message{
		ProjectID:   projectID,
		Sender:      sender,
		Content:     content,
		MessageType: messageType,
		Importance:  importance,
	}, nil
}
