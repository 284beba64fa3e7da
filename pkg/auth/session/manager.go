package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	redisclient "github.com/angelmondragon/bloodlink-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error
	RemoveFromSet(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	AccountSessionsKey(accountID string) string
}

// record is the value stored under an access id. The account id lets a
// refresh be checked against the token's subject and lets every session of
// an account be revoked at once.
type record struct {
	AccountID uuid.UUID `json:"account_id"`
	Token     string    `json:"token"`
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccessID     string
	RefreshToken string
	AccountID    uuid.UUID
}

// Manager stores refresh sessions in Redis, one key per access id plus an
// index set per account.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Generate opens a session for accountID under accessID and returns its
// refresh token.
func (m *Manager) Generate(ctx context.Context, accountID uuid.UUID, accessID string) (string, error) {
	if accountID == uuid.Nil {
		return "", fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.save(ctx, accessID, record{AccountID: accountID, Token: token}); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate checks the refresh token bound to oldAccessID, replaces the session
// with a new access id and token, and reports the owning account.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}

	current, err := m.load(ctx, oldAccessID)
	if err != nil {
		return Rotation{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.Token), []byte(provided)) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), AccountID: current.AccountID}
	if next.RefreshToken, err = generateRefreshToken(); err != nil {
		return Rotation{}, err
	}
	if err := m.save(ctx, next.AccessID, record{AccountID: current.AccountID, Token: next.RefreshToken}); err != nil {
		return Rotation{}, err
	}
	if err := m.drop(ctx, current.AccountID, oldAccessID); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

// Revoke ends the session tied to accessID. Unknown ids are a no-op.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	current, err := m.load(ctx, accessID)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.drop(ctx, current.AccountID, accessID)
}

// RevokeAccount ends every session of accountID and returns how many were open.
func (m *Manager) RevokeAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	if accountID == uuid.Nil {
		return 0, fmt.Errorf("account id is required")
	}
	indexKey := m.keyer.AccountSessionsKey(accountID.String())
	accessIDs, err := m.store.SetMembers(ctx, indexKey)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(accessIDs)+1)
	for _, accessID := range accessIDs {
		keys = append(keys, m.keyer.AccessSessionKey(accessID))
	}
	keys = append(keys, indexKey)
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(accessIDs), nil
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	key := m.keyer.AccessSessionKey(accessID)
	if _, err := m.store.Get(ctx, key); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Manager) save(ctx context.Context, accessID string, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return err
	}
	return m.store.AddToSet(ctx, m.keyer.AccountSessionsKey(rec.AccountID.String()), m.ttl, accessID)
}

func (m *Manager) load(ctx context.Context, accessID string) (record, error) {
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		return record{}, wrapNotFound(err)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.AccountID == uuid.Nil {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func (m *Manager) drop(ctx context.Context, accountID uuid.UUID, accessID string) error {
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.RemoveFromSet(ctx, m.keyer.AccountSessionsKey(accountID.String()), accessID)
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) || errors.Is(err, ErrInvalidRefreshToken) {
		return ErrInvalidRefreshToken
	}
	return err
}
