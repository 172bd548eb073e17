package entity

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// NoProductKey is the sentinel product key for chats opened without a product
// context. A general chat between two users is a distinct thread from any
// product-scoped one between the same pair.
const NoProductKey = "none"

// ParticipantInfo is a denormalized snapshot of a participant's profile,
// refreshed opportunistically on chat reuse and message send.
type ParticipantInfo struct {
	Email           string `json:"email,omitempty" firestore:"email,omitempty"`
	Username        string `json:"username,omitempty" firestore:"username,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty" firestore:"profileImageUrl,omitempty"`
}

// ProductContext ties a chat to the listing it was opened about.
type ProductContext struct {
	ProductID       string `json:"product_id" firestore:"productId"`
	ProductName     string `json:"product_name" firestore:"productName"`
	ProductImageURL string `json:"product_image_url,omitempty" firestore:"productImageUrl,omitempty"`
	SellerID        string `json:"seller_id,omitempty" firestore:"sellerId,omitempty"`
}

// LastMessage mirrors the most recent message so chat lists render without a
// join against the messages subcollection.
type LastMessage struct {
	Text      string    `json:"text" firestore:"text"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type Chat struct {
	ID              string                     `json:"id" firestore:"id"`
	ParticipantUIDs []string                   `json:"participant_uids" firestore:"participantUids"`
	PairKey         string                     `json:"pair_key" firestore:"pairKey"`
	ProductKey      string                     `json:"product_key" firestore:"productKey"`
	ParticipantInfo map[string]ParticipantInfo `json:"participant_info,omitempty" firestore:"participantInfo,omitempty"`
	ProductContext  *ProductContext            `json:"product_context,omitempty" firestore:"productContext,omitempty"`
	LastMessage     *LastMessage               `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	CreatedAt       time.Time                  `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time                  `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether uid is one of the chat's participants.
func (c *Chat) HasParticipant(uid string) bool {
	for _, p := range c.ParticipantUIDs {
		if p == uid {
			return true
		}
	}
	return false
}

// OtherParticipant returns the uid on the other side of the pair.
func (c *Chat) OtherParticipant(uid string) string {
	for _, p := range c.ParticipantUIDs {
		if p != uid {
			return p
		}
	}
	return ""
}

// CanonicalPair returns the two uids in sorted order so that (A,B) and (B,A)
// resolve to the same pair.
func CanonicalPair(a, b string) []string {
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}

// PairKey derives the indexed equality key for a participant pair. Storing a
// concatenated sorted-pair string avoids relying on the store's array
// equality semantics.
func PairKey(a, b string) string {
	pair := CanonicalPair(a, b)
	return pair[0] + "_" + pair[1]
}

// ProductKeyFor normalizes an optional product id to its lookup key.
func ProductKeyFor(productID string) string {
	if productID == "" {
		return NoProductKey
	}
	return productID
}

// ChatDocID derives the deterministic document id for a canonical
// (pair, product) key. Creating the document with a not-exists precondition
// makes concurrent first contacts converge on a single chat: the loser gets
// an already-exists failure and re-reads the winner.
func ChatDocID(pairKey, productKey string) string {
	sum := sha1.Sum([]byte(pairKey + "|" + productKey))
	return hex.EncodeToString(sum[:])
}
