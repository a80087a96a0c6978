package models

import "time"

// MessageType distinguishes direct messages from course announcements.
type MessageType string

const (
	MessagePrivate      MessageType = "private"
	MessageAnnouncement MessageType = "announcement"
)

// Message is a direct message or an announcement. Announcements carry a
// course id, or none when addressed to every course.
type Message struct {
	MessageID  ID          `json:"message_id"`
	SenderID   ID          `json:"sender_id"`
	SenderName string      `json:"sender_name,omitempty"`
	ReceiverID *ID         `json:"receiver_id"`
	CourseID   *ID         `json:"course_id"`
	Type       MessageType `json:"message_type"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
}

// MessageDraft is the composer payload.
type MessageDraft struct {
	Type       MessageType `json:"message_type" validate:"required,oneof=private announcement"`
	Content    string      `json:"content" validate:"required,max=5000"`
	ReceiverID *ID         `json:"receiver_id,omitempty"`
	CourseID   *ID         `json:"course_id,omitempty"`
}

// DirectMessage is sent from a profile page.
type DirectMessage struct {
	ReceiverID ID     `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=5000"`
}

// Recipients lists who an instructor can address.
type Recipients struct {
	Students []StudentRecord `json:"students"`
	Courses  []Course        `json:"courses"`
}
