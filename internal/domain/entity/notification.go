package entity

import (
	"strings"
	"time"
)

type NotificationType string

const (
	NotificationMessage       NotificationType = "message"
	NotificationPostLiked     NotificationType = "post_liked"
	NotificationCommentLiked  NotificationType = "comment_liked"
	NotificationNewFollow     NotificationType = "new_follow"
	NotificationNewPost       NotificationType = "new_post"
	NotificationPostComment   NotificationType = "post_comment"
	NotificationCommentReply  NotificationType = "comment_reply"
	NotificationPostReply     NotificationType = "post_reply"
	NotificationMention       NotificationType = "mention"
	NotificationOfferMade     NotificationType = "offer_made"
	NotificationOfferReceived NotificationType = "offer_received"
	NotificationOfferAccepted NotificationType = "offer_accepted"
)

// NotificationTypes lists every type in display order.
var NotificationTypes = []NotificationType{
	NotificationMessage,
	NotificationPostLiked,
	NotificationCommentLiked,
	NotificationNewFollow,
	NotificationNewPost,
	NotificationPostComment,
	NotificationCommentReply,
	NotificationPostReply,
	NotificationMention,
	NotificationOfferMade,
	NotificationOfferReceived,
	NotificationOfferAccepted,
}

var defaultActions = map[NotificationType]string{
	NotificationMessage:       "sent you a message",
	NotificationPostLiked:     "liked your post",
	NotificationCommentLiked:  "liked your comment",
	NotificationNewFollow:     "started following you",
	NotificationNewPost:       "shared a new post",
	NotificationPostComment:   "commented on your post",
	NotificationCommentReply:  "replied to your comment",
	NotificationPostReply:     "replied to your post",
	NotificationMention:       "mentioned you",
	NotificationOfferMade:     "made an offer",
	NotificationOfferReceived: "sent you an offer",
	NotificationOfferAccepted: "accepted your offer",
}

func (t NotificationType) Valid() bool {
	_, ok := defaultActions[t]
	return ok
}

// DefaultAction is the action text used when a trigger supplies none.
func (t NotificationType) DefaultAction() string {
	return defaultActions[t]
}

// Social reports whether the type comes from the social feed rather than
// from chat or trading.
func (t NotificationType) Social() bool {
	return t.Valid() && categories[t] == CategorySocial
}

type NotificationTarget struct {
	Type string `json:"type" firestore:"type"` // post, comment, user, conversation, message
	ID   string `json:"id" firestore:"id"`
}

type Notification struct {
	ID          string                 `json:"id" firestore:"id"`
	RecipientID string                 `json:"recipient_id" firestore:"recipientId"`
	ActorID     string                 `json:"actor_id" firestore:"actorId"`
	Type        NotificationType       `json:"type" firestore:"type"`
	Action      string                 `json:"action" firestore:"action"`
	Target      *NotificationTarget    `json:"target,omitempty" firestore:"target,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty" firestore:"data,omitempty"`
	DedupKey    string                 `json:"dedup_key" firestore:"dedupKey"`
	IsRead      bool                   `json:"is_read" firestore:"isRead"`
	ReadAt      *time.Time             `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	Actor       UserSummary            `json:"actor" firestore:"actor"`
	Recipient   UserSummary            `json:"recipient" firestore:"recipient"`
	CreatedAt   time.Time              `json:"created_at" firestore:"createdAt"`
}

// NotificationDedupKey identifies triggers that collapse into a single
// notification inside the dedup window.
func NotificationDedupKey(recipientID, actorID string, t NotificationType, target *NotificationTarget) string {
	targetID := ""
	if target != nil {
		targetID = target.ID
	}
	return strings.Join([]string{recipientID, actorID, string(t), targetID}, "|")
}
