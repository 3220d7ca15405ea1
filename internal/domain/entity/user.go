package entity

import (
	"time"
)

type User struct {
	ID        string    `json:"id" firestore:"id"`
	Email     string    `json:"email" firestore:"email"`
	Username  string    `json:"username" firestore:"username"`
	FullName  string    `json:"full_name,omitempty" firestore:"fullName,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UserSummary is the minimal profile shown next to messages and
// notifications.
type UserSummary struct {
	ID       string `json:"id" firestore:"id"`
	Username string `json:"username" firestore:"username"`
	Name     string `json:"name" firestore:"name"`
	Avatar   string `json:"avatar,omitempty" firestore:"avatar,omitempty"`
}

func (u *User) Summary() UserSummary {
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     name,
		Avatar:   u.AvatarURL,
	}
}

// UnknownUser is the summary used when a profile cannot be loaded.
func UnknownUser(id string) UserSummary {
	return UserSummary{ID: id, Username: id, Name: id}
}
