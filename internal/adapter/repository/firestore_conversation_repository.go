package repository

import (
	"context"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) conversations() *firestore.CollectionRef {
	return r.client.Collection("conversations")
}

func (r *firestoreConversationRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversations().Doc(conversationID).Collection("messages")
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	_, err := r.conversations().Doc(conv.ID).Create(ctx, conv)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Internal("Failed to create conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversations().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return &conv, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.conversations().Where("participants", "array-contains", userID).OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch conversations", err)
	}

	var convs []*entity.Conversation
	for _, doc := range allDocs {
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			logger.Warn("Skipping unreadable conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		convs = append(convs, &conv)
	}

	return paginate(convs, limit, offset), int64(len(convs)), nil
}

func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, msg *entity.Message, unreadFor []string) (*entity.Conversation, error) {
	convRef := r.conversations().Doc(msg.ConversationID)
	var conv entity.Conversation

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", err)
			}
			return err
		}
		conv = entity.Conversation{}
		if err := doc.DataTo(&conv); err != nil {
			return err
		}

		conv.MessageCount++
		msg.Seq = conv.MessageCount
		if err := tx.Create(r.messages(msg.ConversationID).Doc(msg.ID), msg); err != nil {
			return err
		}

		updates := []firestore.Update{
			{Path: "lastMessage", Value: msg.Text},
			{Path: "lastMessageAt", Value: msg.CreatedAt},
			{Path: "updatedAt", Value: msg.CreatedAt},
			{Path: "messageCount", Value: firestore.Increment(1)},
		}
		for _, p := range unreadFor {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"unreadCount", p},
				Value:     firestore.Increment(1),
			})
		}
		applyAppend(&conv, msg, unreadFor)
		return tx.Update(convRef, updates)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to append message", err)
	}
	return &conv, nil
}

func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	_, err := r.conversations().Doc(conversationID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to reset unread count", err)
	}
	return r.GetByID(ctx, conversationID)
}

func (r *firestoreConversationRepository) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &msg, nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	query := r.messages(conversationID).OrderBy("seq", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var msg entity.Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &msg)
	}

	slices.Reverse(messages)
	return messages, nil
}

func (r *firestoreConversationRepository) ResolveOffer(ctx context.Context, conversationID, messageID string, expectedVersion int64, offerStatus entity.OfferStatus, by string, at time.Time) (*entity.Message, error) {
	ref := r.messages(conversationID).Doc(messageID)
	var msg entity.Message

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return err
		}
		msg = entity.Message{}
		if err := doc.DataTo(&msg); err != nil {
			return err
		}
		if err := resolveOffer(&msg, expectedVersion, offerStatus, by, at); err != nil {
			return err
		}
		return tx.Set(ref, &msg)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to resolve offer", err)
	}
	return &msg, nil
}

func (r *firestoreConversationRepository) ReopenOffer(ctx context.Context, conversationID, messageID string) error {
	ref := r.messages(conversationID).Doc(messageID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var msg entity.Message
		if err := doc.DataTo(&msg); err != nil {
			return err
		}
		if msg.Offer == nil {
			return nil
		}
		reopenOffer(&msg)
		return tx.Set(ref, &msg)
	})
	return wrapStorageErr("Failed to reopen offer", err)
}
