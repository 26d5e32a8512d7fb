package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itransmotors/carbot/internal/calculator"
)

// State is the conversation step a user is in
type State string

const (
	StateIdle       State = ""
	StateAuction    State = "auction"
	StateBid        State = "bid"
	StateLocation   State = "location"
	StateInsurance  State = "insurance"
	StateYear       State = "year"
	StateEngine     State = "engine"
	StateVolume     State = "volume"
	StateBattery    State = "battery"
	StateSaveChoice State = "save_choice"
	StateSaveVIN    State = "save_vin"
	StateSaveModel  State = "save_model"
	StateSaveClient State = "save_client"
)

// DefaultSessionTTL bounds how long an abandoned conversation is kept
const DefaultSessionTTL = 24 * time.Hour

// Session is the per-user conversation state
type Session struct {
	State     State              `json:"state"`
	Request   calculator.Request `json:"request"`
	Result    *calculator.Result `json:"result,omitempty"`
	VIN       string             `json:"vin,omitempty"`
	Model     string             `json:"model,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SessionStore keeps conversation state between updates.
// Load returns nil, nil when the user has no session.
type SessionStore interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, userID int64, s *Session) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryStore is an in-process SessionStore
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store dropping sessions idle longer than ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, userID int64, s *Session) error {
	s.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[userID] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps sessions in redis so conversations survive restarts
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func sessionKey(userID int64) string {
	return "carbot:session:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Load(ctx context.Context, userID int64) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, userID int64, s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, sessionKey(userID)).Err()
}

// Close closes the redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
