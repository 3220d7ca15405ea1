package repository

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.client.Collection("users").Doc(user.ID).Set(ctx, user)
	if err != nil {
		return errors.Internal("Failed to create user", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

func (r *firestoreUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := r.client.Collection("users").Where("username", "==", username).Limit(1)
	iter := query.Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("User", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to query user by username", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

type firestoreAthleteCatalog struct {
	client *firestore.Client
}

func NewFirestoreAthleteCatalog(client *firestore.Client) repository.AthleteCatalog {
	return &firestoreAthleteCatalog{
		client: client,
	}
}

func (r *firestoreAthleteCatalog) GetByName(ctx context.Context, name string) (*entity.Athlete, error) {
	doc, err := r.client.Collection("athletes").Doc(strings.ToLower(name)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Athlete", err)
		}
		return nil, errors.Internal("Failed to get athlete", err)
	}

	var athlete entity.Athlete
	if err := doc.DataTo(&athlete); err != nil {
		return nil, errors.Internal("Failed to parse athlete data", err)
	}
	return &athlete, nil
}

func (r *firestoreAthleteCatalog) Upsert(ctx context.Context, athlete *entity.Athlete) error {
	if athlete.ID == "" {
		athlete.ID = uuid.New().String()
	}
	_, err := r.client.Collection("athletes").Doc(strings.ToLower(athlete.Name)).Set(ctx, athlete)
	if err != nil {
		return errors.Internal("Failed to save athlete", err)
	}
	return nil
}
