package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatType selects which conversation of a complaint a chat document holds
type ChatType string

const (
	ChatUserDepartment  ChatType = "user-department"
	ChatAdminDepartment ChatType = "admin-department"

	// legacyChatComplaint is the older single-chat-per-complaint spelling of
	// the citizen/department conversation.
	legacyChatComplaint = "complaint"
)

// ParseChatType normalises a chatWith/chatType value. Empty input yields
// ok=false so callers can apply their role default.
func ParseChatType(s string) (ChatType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ChatUserDepartment), "user", legacyChatComplaint:
		return ChatUserDepartment, true
	case string(ChatAdminDepartment), "admin":
		return ChatAdminDepartment, true
	}
	return "", false
}

// ParticipantKind tags which collection a participant or sender id refers to
type ParticipantKind string

const (
	KindUser       ParticipantKind = "User"
	KindDepartment ParticipantKind = "Department"
	KindAdmin      ParticipantKind = "Admin"
)

// KindForRole maps an authenticated role onto its participant kind
func KindForRole(r Role) ParticipantKind {
	switch r {
	case RoleAdmin:
		return KindAdmin
	case RoleDepartment:
		return KindDepartment
	default:
		return KindUser
	}
}

// Participant is a member of a chat room
type Participant struct {
	ParticipantID    string          `bson:"participant_id" json:"participant_id"`
	ParticipantModel ParticipantKind `bson:"participant_model" json:"participant_model"`
	ParticipantRole  Role            `bson:"participant_role" json:"participant_role"`
	DisplayName      string          `bson:"-" json:"display_name,omitempty"`
	LastSeenAt       *time.Time      `bson:"last_seen_at,omitempty" json:"last_seen_at,omitempty"`
	JoinedAt         time.Time       `bson:"joined_at" json:"joined_at"`
}

// ReadReceipt marks a message as read by one participant
type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"user_id"`
	ReadAt time.Time `bson:"read_at" json:"read_at"`
}

// MessageType distinguishes text from image chat messages
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

// ChatMessage is one message inside a chat document
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	SenderModel ParticipantKind    `bson:"sender_model" json:"sender_model"`
	SenderRole  Role               `bson:"sender_role" json:"sender_role"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	MessageType MessageType        `bson:"message_type" json:"message_type"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	IsRead      []ReadReceipt      `bson:"is_read" json:"is_read"`
}

// ReadBy reports whether the participant has a receipt on this message
func (m *ChatMessage) ReadBy(participantID string) bool {
	for _, r := range m.IsRead {
		if r.UserID == participantID {
			return true
		}
	}
	return false
}

// Chat is the room for one (complaint, chat type) pair
type Chat struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ComplaintID  string             `bson:"complaint_id" json:"complaint_id"`
	ChatType     ChatType           `bson:"chat_type" json:"chat_type"`
	Participants []Participant      `bson:"participants" json:"participants"`
	Messages     []ChatMessage      `bson:"messages" json:"messages"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether id is already in the room
func (c *Chat) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p.ParticipantID == id {
			return true
		}
	}
	return false
}

// UnreadCount counts messages authored by someone else that the reader has
// no receipt for
func (c *Chat) UnreadCount(readerID string) int {
	n := 0
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.SenderID == readerID || m.ReadBy(readerID) {
			continue
		}
		n++
	}
	return n
}

// ChatStatusActive is the only status new chats are created with
const ChatStatusActive = "active"
