package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: email_unique index created")
	return nil
}

// EnsureRefreshTokenIndexes builds the indexes the session store
// depends on. The unique tokenHash index is load-bearing: it is what
// closes the check-then-create race between concurrent issuances, so
// uniqueness lives in the store rather than application logic.
//
// retention > 0 additionally installs a TTL index so Mongo sweeps
// records that long after their expiresAt; zero keeps every record
// for audit and reuse-detection history.
func EnsureRefreshTokenIndexes(db *mongo.Database, retention time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	hashIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().
			SetName("tokenHash_unique").
			SetUnique(true),
	}

	log.Println("EnsureRefreshTokenIndexes: creating tokenHash_unique index")
	if _, err := indexes.CreateOne(ctx, hashIndex); err != nil {
		log.Println("EnsureRefreshTokenIndexes: tokenHash index error:", err)
		return err
	}

	userIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}
	if _, err := indexes.CreateOne(ctx, userIndex); err != nil {
		log.Println("EnsureRefreshTokenIndexes: userId index error:", err)
		return err
	}

	if retention > 0 {
		ttlIndex := mongo.IndexModel{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().
				SetName("expiresAt_ttl").
				SetExpireAfterSeconds(int32(retention.Seconds())),
		}
		log.Println("EnsureRefreshTokenIndexes: creating expiresAt_ttl index")
		if _, err := indexes.CreateOne(ctx, ttlIndex); err != nil {
			log.Println("EnsureRefreshTokenIndexes: ttl index error:", err)
			return err
		}
	}

	log.Println("EnsureRefreshTokenIndexes: indexes created")
	return nil
}
