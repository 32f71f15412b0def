package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken is one outstanding refresh grant. Only the SHA-256 hash
// of the token's embedded identifier is stored; the raw identifier
// lives exclusively inside the signed token held by the client.
//
// TokenHash, UserID and CreatedAt are immutable after creation. A
// record authenticates a refresh iff Revoked is false and ExpiresAt is
// in the future. Rotated records keep a forward pointer to their
// successor's hash so that reuse of a stolen token is auditable.
type RefreshToken struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	TokenHash      string             `bson:"tokenHash" json:"tokenHash"`
	ExpiresAt      time.Time          `bson:"expiresAt" json:"expiresAt"`
	Revoked        bool               `bson:"revoked" json:"revoked"`
	RevokedAt      *time.Time         `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	ReplacedByHash string             `bson:"replacedByHash,omitempty" json:"replacedByHash,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
