package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection("notifications")
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if _, err := r.collection().Doc(n.ID).Set(ctx, n); err != nil {
		return errors.Internal("Failed to create notification", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Notification", err)
		}
		return nil, errors.Internal("Failed to get notification", err)
	}

	var n entity.Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, errors.Internal("Failed to parse notification data", err)
	}
	return &n, nil
}

func (r *firestoreNotificationRepository) FindRecent(ctx context.Context, dedupKey string, since time.Time) (*entity.Notification, error) {
	iter := r.collection().
		Where("dedupKey", "==", dedupKey).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal("Failed to look up recent notification", err)
	}

	var n entity.Notification
	if err := doc.DataTo(&n); err != nil {
		return nil, errors.Internal("Failed to parse notification data", err)
	}
	return &n, nil
}

func (r *firestoreNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*entity.Notification, int64, error) {
	base := r.collection().Where("recipientId", "==", recipientID)

	total, err := count(ctx, base)
	if err != nil {
		return nil, 0, errors.Internal("Failed to count notifications", err)
	}

	query := base.OrderBy("createdAt", firestore.Desc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var list []*entity.Notification
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate notifications", err)
		}
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			logger.Warn("Skipping unreadable notification %s: %v", doc.Ref.ID, err)
			continue
		}
		list = append(list, &n)
	}
	return list, total, nil
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	n, err := count(ctx, r.collection().
		Where("recipientId", "==", recipientID).
		Where("isRead", "==", false))
	if err != nil {
		return 0, errors.Internal("Failed to count unread notifications", err)
	}
	return n, nil
}

func (r *firestoreNotificationRepository) MarkAsRead(ctx context.Context, id string, at time.Time) (*entity.Notification, bool, error) {
	ref := r.collection().Doc(id)
	var (
		n       entity.Notification
		changed bool
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Notification", err)
			}
			return err
		}
		n = entity.Notification{}
		changed = false
		if err := doc.DataTo(&n); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		n.ReadAt = &at
		changed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "isRead", Value: true},
			{Path: "readAt", Value: at},
		})
	})
	if err != nil {
		return nil, false, wrapStorageErr("Failed to mark notification as read", err)
	}
	return &n, changed, nil
}

func (r *firestoreNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	docs, err := r.collection().
		Where("recipientId", "==", recipientID).
		Where("isRead", "==", false).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to query unread notifications", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "isRead", Value: true},
			{Path: "readAt", Value: at},
		})
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to queue notification update", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	updated := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			logger.Warn("Failed to mark notification read for %s: %v", recipientID, err)
			continue
		}
		updated++
	}
	return updated, nil
}

func count(ctx context.Context, query firestore.Query) (int64, error) {
	res, err := query.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, nil
	}
	return v.GetIntegerValue(), nil
}
