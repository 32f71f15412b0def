package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bajar/internal/config"
	"bajar/internal/token"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func newTestManager(t *testing.T) (*Manager, *token.Codec, *MemoryStore) {
	t.Helper()
	cfg := testSessionConfig()
	codec := token.NewCodec(cfg)
	store := NewMemoryStore()
	return NewManager(cfg, codec, store), codec, store
}

func hashOf(t *testing.T, codec *token.Codec, refreshToken string) string {
	t.Helper()
	_, rawID, err := codec.VerifyRefreshTokenAllowExpired(refreshToken)
	require.NoError(t, err)
	return token.HashIdentifier(rawID)
}

func TestIssue(t *testing.T) {
	mgr, codec, store := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	subject, err := codec.VerifyAccessToken(creds.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.Hex(), subject)

	rec, err := store.FindByHash(context.Background(), hashOf(t, codec, creds.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, userID, rec.UserID)
	assert.False(t, rec.Revoked)
	assert.True(t, rec.ExpiresAt.After(time.Now()))
}

func TestRefreshRotatesAndPreservesIdentity(t *testing.T) {
	mgr, codec, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	first, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	second, gotUser, err := mgr.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	subject, err := codec.VerifyAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.Hex(), subject)
}

func TestRefreshIsOneTimeUse(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	first, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	_, _, err = mgr.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	_, _, err = mgr.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrGrantRevoked)
}

func TestRotationLinksChain(t *testing.T) {
	mgr, codec, store := newTestManager(t)
	userID := primitive.NewObjectID()

	first, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)
	oldHash := hashOf(t, codec, first.RefreshToken)

	second, _, err := mgr.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	newHash := hashOf(t, codec, second.RefreshToken)

	oldRec, err := store.FindByHash(context.Background(), oldHash)
	require.NoError(t, err)
	assert.True(t, oldRec.Revoked)
	require.NotNil(t, oldRec.RevokedAt)
	assert.Equal(t, newHash, oldRec.ReplacedByHash)

	newRec, err := store.FindByHash(context.Background(), newHash)
	require.NoError(t, err)
	assert.False(t, newRec.Revoked)
	assert.Empty(t, newRec.ReplacedByHash)
}

func TestRefreshUnknownToken(t *testing.T) {
	mgr, codec, _ := newTestManager(t)

	// Validly signed but never stored.
	signed, _, err := codec.SignRefreshToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	_, _, err = mgr.Refresh(context.Background(), signed)
	assert.ErrorIs(t, err, ErrGrantNotFound)
}

func TestRefreshGarbageToken(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, _, err := mgr.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshWrongSecret(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	cfg := testSessionConfig()
	cfg.RefreshSecret = "another-secret-entirely"
	forged, _, err := token.NewCodec(cfg).SignRefreshToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	_, _, err = mgr.Refresh(context.Background(), forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestStoredExpiryIsAuthoritative(t *testing.T) {
	mgr, codec, store := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	// The token's own exp claim is still days away; only the stored
	// record is backdated.
	hash := hashOf(t, codec, creds.RefreshToken)
	require.True(t, store.Expire(hash, time.Now().Add(-time.Second)))

	_, _, err = mgr.Refresh(context.Background(), creds.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGrantExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevokeThenRefreshFails(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(context.Background(), creds.RefreshToken))

	_, _, err = mgr.Refresh(context.Background(), creds.RefreshToken)
	assert.ErrorIs(t, err, ErrGrantRevoked)
}

func TestRevokeIsIdempotent(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(context.Background(), creds.RefreshToken))
	require.NoError(t, mgr.Revoke(context.Background(), creds.RefreshToken))
}

func TestRevokeUnknownTokenSucceeds(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	signed, _, err := token.NewCodec(testSessionConfig()).SignRefreshToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	assert.NoError(t, mgr.Revoke(context.Background(), signed))
}

func TestRevokeExpiredTokenSucceeds(t *testing.T) {
	cfg := testSessionConfig()
	cfg.RefreshTTL = -time.Minute
	codec := token.NewCodec(cfg)
	store := NewMemoryStore()
	mgr := NewManager(cfg, codec, store)

	creds, err := mgr.Issue(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)

	assert.NoError(t, mgr.Revoke(context.Background(), creds.RefreshToken))
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _, err := mgr.Refresh(context.Background(), creds.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success, failed := 0, 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		require.ErrorIs(t, err, ErrUnauthorized, "losers must fail unauthorized, got %v", err)
		failed++
	}
	assert.Equal(t, 1, success, "exactly one concurrent refresh may win")
	assert.Equal(t, n-1, failed)
}

func TestCanceledContextIsNotUnauthorized(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	userID := primitive.NewObjectID()

	creds, err := mgr.Issue(context.Background(), userID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = mgr.Refresh(ctx, creds.RefreshToken)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized), "a storage/context failure must not look like invalid credentials")
}
