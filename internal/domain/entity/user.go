package entity

import (
	"time"
)

type User struct {
	UID             string    `json:"uid" firestore:"uid"`
	FirstName       string    `json:"first_name" firestore:"firstName"`
	LastName        string    `json:"last_name" firestore:"lastName"`
	Username        string    `json:"username" firestore:"username"`
	Email           string    `json:"email" firestore:"email"`
	ProfileImageURL string    `json:"profile_image_url,omitempty" firestore:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updatedAt"`
}
