package session

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bajar/internal/models"
)

// ErrRecordNotFound is returned by FindByHash when no grant matches.
// It is a store-level condition, not yet an authorization decision;
// the Manager translates it.
var ErrRecordNotFound = errors.New("session: record not found")

// Store persists refresh grants keyed by token hash.
//
// Revoke is conditional on the record still being active and reports
// whether this call performed the transition. Rotation relies on that
// bool for its single-winner guarantee: two concurrent refreshes of
// the same token race on one conditional write, and exactly one sees
// true. Logout ignores the bool, which is what makes it idempotent.
type Store interface {
	Create(ctx context.Context, rec *models.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash, replacedByHash string) (bool, error)
}

// MongoStore keeps grants in the refresh_tokens collection. The unique
// index on tokenHash (see internal/database) closes the check-then-create
// race; document-level atomicity of UpdateOne gives Revoke its
// exactly-one-winner property without a transaction.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("refresh_tokens")}
}

func (s *MongoStore) Create(ctx context.Context, rec *models.RefreshToken) error {
	res, err := s.coll.InsertOne(ctx, rec)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = id
	}
	return nil
}

func (s *MongoStore) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	err := s.coll.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MongoStore) Revoke(ctx context.Context, tokenHash, replacedByHash string) (bool, error) {
	set := bson.M{
		"revoked":   true,
		"revokedAt": time.Now(),
	}
	if replacedByHash != "" {
		set["replacedByHash"] = replacedByHash
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"revoked":   false,
	}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
