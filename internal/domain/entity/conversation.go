package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type ConversationType string

const (
	ConversationUserToUser ConversationType = "user_to_user"
	// ConversationUserToEntity is the legacy shape where the second
	// participant is a catalog entity id.
	ConversationUserToEntity ConversationType = "user_to_entity"
)

var conversationNamespace = uuid.MustParse("6f1c2a0e-5d7b-4c36-9a51-2b8e3f4d7c10")

type Conversation struct {
	ID            string           `json:"id" firestore:"id"`
	Participants  []string         `json:"participants" firestore:"participants"`
	Type          ConversationType `json:"type" firestore:"type"`
	LastMessage   string           `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time        `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount   map[string]int   `json:"unread_count" firestore:"unreadCount"` // participant id -> unread messages
	MessageCount  int64            `json:"message_count" firestore:"messageCount"`
	CreatedAt     time.Time        `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time        `json:"updated_at" firestore:"updatedAt"`
}

// NewConversation builds an unsaved user-to-user conversation. The id is
// derived from the participant pair so that concurrent creators collide.
func NewConversation(userA, userB string, now time.Time) *Conversation {
	participants := SortedPair(userA, userB)
	return &Conversation{
		ID:           ConversationIDFor(userA, userB),
		Participants: participants,
		Type:         ConversationUserToUser,
		UnreadCount: map[string]int{
			participants[0]: 0,
			participants[1]: 0,
		},
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
	}
}

func SortedPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

func ConversationIDFor(a, b string) string {
	pair := SortedPair(a, b)
	return uuid.NewSHA1(conversationNamespace, []byte(pair[0]+"\x00"+pair[1])).String()
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart of userID, or "" when userID is
// not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}
