package session

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bajar/internal/config"
	"bajar/internal/models"
	"bajar/internal/token"
)

// Credentials is one issued pair: the stateless access token plus the
// signed refresh token whose hashed identifier now lives in the store.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Manager orchestrates issuance, rotation and revocation of refresh
// grants. A grant moves ACTIVE→ROTATED (revoked with a successor
// pointer), ACTIVE→REVOKED (logout, no successor) or expires by time;
// every transition is terminal.
type Manager struct {
	codec      *token.Codec
	store      Store
	refreshTTL time.Duration
}

func NewManager(cfg config.SessionConfig, codec *token.Codec, store Store) *Manager {
	return &Manager{codec: codec, store: store, refreshTTL: cfg.RefreshTTL}
}

// Issue creates a fresh grant for the user and returns both tokens.
// Used by login and register.
func (m *Manager) Issue(ctx context.Context, userID primitive.ObjectID) (*Credentials, error) {
	accessToken, err := m.codec.SignAccessToken(userID.Hex())
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := m.createGrant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.codec.AccessTTL().Seconds()),
	}, nil
}

// Refresh rotates the presented token: the old grant is revoked with a
// forward pointer to its successor, then the successor is created and
// a new access token signed. Tokens are strictly one-time-use — a
// second presentation of the same token loses the conditional revoke
// and fails unauthorized, which is what makes theft of a refresh token
// a detectable event instead of a silent long-lived credential.
func (m *Manager) Refresh(ctx context.Context, presented string) (*Credentials, primitive.ObjectID, error) {
	subject, rawID, err := m.codec.VerifyRefreshToken(presented)
	if err != nil {
		return nil, primitive.NilObjectID, classifyCodecErr(err)
	}

	userID, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, primitive.NilObjectID, ErrTokenInvalid
	}

	hash := token.HashIdentifier(rawID)
	rec, err := m.store.FindByHash(ctx, hash)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, primitive.NilObjectID, ErrGrantNotFound
	}
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if rec.Revoked {
		log.Println("[AUTH] [WARN] revoked refresh token presented, possible reuse for user:", rec.UserID.Hex())
		return nil, primitive.NilObjectID, ErrGrantRevoked
	}
	// The stored expiry is authoritative, independent of the token's
	// own exp claim.
	if !rec.ExpiresAt.After(time.Now()) {
		return nil, primitive.NilObjectID, ErrGrantExpired
	}

	newAccess, err := m.codec.SignAccessToken(subject)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	newRefresh, newRawID, err := m.codec.SignRefreshToken(subject)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	newHash := token.HashIdentifier(newRawID)

	// Revoke-before-create: the old grant must be dead before the
	// successor exists. The conditional write also decides races —
	// of N concurrent refreshes of one token, exactly one revokes.
	won, err := m.store.Revoke(ctx, hash, newHash)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if !won {
		return nil, primitive.NilObjectID, ErrGrantRevoked
	}

	now := time.Now()
	if err := m.store.Create(ctx, &models.RefreshToken{
		UserID:    rec.UserID,
		TokenHash: newHash,
		ExpiresAt: now.Add(m.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, primitive.NilObjectID, err
	}

	return &Credentials{
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(m.codec.AccessTTL().Seconds()),
	}, userID, nil
}

// Revoke ends the presented grant with no successor. It is idempotent:
// unknown, already-revoked and expired tokens all succeed, because
// logout must never fail visibly. Only an unverifiable signature or a
// storage failure is reported.
func (m *Manager) Revoke(ctx context.Context, presented string) error {
	_, rawID, err := m.codec.VerifyRefreshTokenAllowExpired(presented)
	if err != nil {
		return classifyCodecErr(err)
	}
	_, err = m.store.Revoke(ctx, token.HashIdentifier(rawID), "")
	return err
}

func classifyCodecErr(err error) error {
	if errors.Is(err, token.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func (m *Manager) createGrant(ctx context.Context, userID primitive.ObjectID) (string, string, error) {
	refreshToken, rawID, err := m.codec.SignRefreshToken(userID.Hex())
	if err != nil {
		return "", "", err
	}
	hash := token.HashIdentifier(rawID)
	now := time.Now()
	if err := m.store.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(m.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return "", "", err
	}
	return refreshToken, hash, nil
}
