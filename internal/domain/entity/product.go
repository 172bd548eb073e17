package entity

import (
	"time"
)

type Product struct {
	ID          string    `json:"id" firestore:"id"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description" firestore:"description"`
	Price       float64   `json:"price" firestore:"price"`
	Category    string    `json:"category" firestore:"category"`
	ImageURL    string    `json:"image_url" firestore:"imageUrl"`
	ImageHint   string    `json:"image_hint,omitempty" firestore:"imageHint,omitempty"`
	Keywords    []string  `json:"keywords,omitempty" firestore:"keywords,omitempty"`
	SellerID    string    `json:"seller_id" firestore:"sellerId"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}
