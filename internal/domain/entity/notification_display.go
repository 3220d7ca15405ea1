package entity

import (
	"time"

	"github.com/dustin/go-humanize"
)

type NotificationCategory string

const (
	CategoryMessages NotificationCategory = "messages"
	CategoryOffers   NotificationCategory = "offers"
	CategorySocial   NotificationCategory = "social"
)

var categories = map[NotificationType]NotificationCategory{
	NotificationMessage:       CategoryMessages,
	NotificationPostLiked:     CategorySocial,
	NotificationCommentLiked:  CategorySocial,
	NotificationNewFollow:     CategorySocial,
	NotificationNewPost:       CategorySocial,
	NotificationPostComment:   CategorySocial,
	NotificationCommentReply:  CategorySocial,
	NotificationPostReply:     CategorySocial,
	NotificationMention:       CategorySocial,
	NotificationOfferMade:     CategoryOffers,
	NotificationOfferReceived: CategoryOffers,
	NotificationOfferAccepted: CategoryOffers,
}

// Types without an entry have no action button.
var buttonTexts = map[NotificationType]string{
	NotificationNewFollow:     "Follow Back",
	NotificationOfferMade:     "View Offer",
	NotificationOfferReceived: "View Offer",
	NotificationMessage:       "Reply",
}

type DisplayNotification struct {
	ID              string                 `json:"id"`
	Type            NotificationType       `json:"type"`
	Category        NotificationCategory   `json:"category"`
	Action          string                 `json:"action"`
	Actor           UserSummary            `json:"user"`
	Target          *NotificationTarget    `json:"target,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
	IsRead          bool                   `json:"isRead"`
	ReadAt          *time.Time             `json:"readAt,omitempty"`
	Time            string                 `json:"time"`
	CreatedAt       time.Time              `json:"createdAt"`
	HasActionButton bool                   `json:"hasActionButton"`
	ButtonText      string                 `json:"buttonText,omitempty"`
}

func CategoryOf(t NotificationType) NotificationCategory {
	if c, ok := categories[t]; ok {
		return c
	}
	return CategorySocial
}

func ButtonTextOf(t NotificationType) (string, bool) {
	text, ok := buttonTexts[t]
	return text, ok
}

// ToDisplay projects n for clients. The relative time is computed against
// now and never stored.
func ToDisplay(n *Notification, now time.Time) DisplayNotification {
	button, hasButton := ButtonTextOf(n.Type)
	return DisplayNotification{
		ID:              n.ID,
		Type:            n.Type,
		Category:        CategoryOf(n.Type),
		Action:          n.Action,
		Actor:           n.Actor,
		Target:          n.Target,
		Data:            n.Data,
		IsRead:          n.IsRead,
		ReadAt:          n.ReadAt,
		Time:            RelativeTime(n.CreatedAt, now),
		CreatedAt:       n.CreatedAt,
		HasActionButton: hasButton,
		ButtonText:      button,
	}
}

func RelativeTime(then, now time.Time) string {
	if now.Sub(then) < time.Minute {
		return "just now"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}
