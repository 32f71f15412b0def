package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bajar/internal/models"
)

// MemoryStore is a mutex-guarded in-process Store. It exists for tests
// and local development and honors the same contract as MongoStore,
// including the unique-hash constraint and conditional revoke.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.RefreshToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.RefreshToken)}
}

func (s *MemoryStore) Create(ctx context.Context, rec *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.TokenHash]; exists {
		return fmt.Errorf("session: duplicate token hash %s", rec.TokenHash)
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	cp := *rec
	s.records[rec.TokenHash] = &cp
	return nil
}

func (s *MemoryStore) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenHash]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, tokenHash, replacedByHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenHash]
	if !ok || rec.Revoked {
		return false, nil
	}
	now := time.Now()
	rec.Revoked = true
	rec.RevokedAt = &now
	if replacedByHash != "" {
		rec.ReplacedByHash = replacedByHash
	}
	return true, nil
}

// Expire backdates a stored grant's expiry. Test helper only.
func (s *MemoryStore) Expire(tokenHash string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenHash]
	if !ok {
		return false
	}
	rec.ExpiresAt = at
	return true
}
