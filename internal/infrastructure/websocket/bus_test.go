package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradechat/internal/domain/entity"
	"tradechat/internal/usecase"
)

type recordingPublisher struct {
	mu     sync.Mutex
	frames map[string][]WSMessage
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{frames: map[string][]WSMessage{}}
}

func (p *recordingPublisher) Publish(channel string, payload []byte) {
	var msg WSMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames[channel] = append(p.frames[channel], msg)
}

func (p *recordingPublisher) channels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.frames))
	for ch := range p.frames {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func testConversation() *entity.Conversation {
	conv := entity.NewConversation("alice", "bob", time.Now())
	conv.LastMessage = "hi"
	conv.UnreadCount["bob"] = 3
	return conv
}

func Test_Bus_New_Message_Skips_Sender_Private_Channel(t *testing.T) {
	req := require.New(t)
	pub := newRecordingPublisher()
	bus := NewBus(pub)
	conv := testConversation()

	bus.PublishNewMessage(context.Background(), conv, &entity.Message{ID: "m1", ConversationID: conv.ID, SenderID: "alice", Text: "hi"})

	req.Equal([]string{ConversationChannel(conv.ID), UserChannel("bob")}, pub.channels())
	frame := pub.frames[UserChannel("bob")][0]
	req.Equal(EventNewMessage, frame.Type)
	req.Equal(conv.ID, frame.ConversationID)

	data := frame.Data.(map[string]interface{})
	req.Equal(conv.ID, data["conversationId"])
	req.Equal("m1", data["message"].(map[string]interface{})["id"])
	unread := data["conversation"].(map[string]interface{})["unreadCount"].(map[string]interface{})
	req.EqualValues(3, unread["bob"])
}

func Test_Bus_Notification_Goes_To_Recipient(t *testing.T) {
	req := require.New(t)
	pub := newRecordingPublisher()
	NewBus(pub).PublishNotification(context.Background(), &entity.Notification{
		ID:          "n1",
		RecipientID: "bob",
		ActorID:     "alice",
		Type:        entity.NotificationNewFollow,
		CreatedAt:   time.Now(),
	})

	req.Equal([]string{UserChannel("bob")}, pub.channels())
	frame := pub.frames[UserChannel("bob")][0]
	req.Equal(EventNewNotification, frame.Type)
	data := frame.Data.(map[string]interface{})
	req.Equal("Follow Back", data["buttonText"])
	req.Equal("social", data["category"])
}

func Test_Bus_Offer_Accepted_Reaches_Both_Parties(t *testing.T) {
	req := require.New(t)
	pub := newRecordingPublisher()
	conv := testConversation()

	NewBus(pub).PublishOfferAccepted(context.Background(), conv, &entity.Message{ID: "m2", ConversationID: conv.ID, SenderID: entity.SystemSenderID, System: true},
		usecase.TradeDetails{AthleteName: "X", Quantity: 10, TotalAmount: "$50.00", Type: entity.OfferBuy})

	req.Equal([]string{UserChannel("alice"), UserChannel("bob")}, pub.channels())
	details := pub.frames[UserChannel("alice")][0].Data.(map[string]interface{})["tradeDetails"].(map[string]interface{})
	req.Equal("$50.00", details["totalAmount"])
	req.Equal("X", details["athleteName"])
}
