package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/docfiler/internal/models"
)

// ErrNotFound is returned when a document has no pipeline record.
var ErrNotFound = errors.New("pipeline state not found")

// StateStore persists per-document pipeline records.
type StateStore interface {
	Get(ctx context.Context, documentID string) (*models.PipelineState, error)
	Save(ctx context.Context, state *models.PipelineState) error
}

const (
	stateKeyFormat = "pipeline:%s"
	stateTTL       = 24 * time.Hour
)

// RedisStore keeps pipeline records in redis with a 24h TTL, matching the
// task status records the queue writes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, documentID string) (*models.PipelineState, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(stateKeyFormat, documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline state: %w", err)
	}

	var state models.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *models.PipelineState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode pipeline state: %w", err)
	}
	key := fmt.Sprintf(stateKeyFormat, state.DocumentID)
	if err := s.client.Set(ctx, key, data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save pipeline state: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory StateStore for tests and single-node runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.PipelineState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]models.PipelineState)}
}

func (s *MemoryStore) Get(ctx context.Context, documentID string) (*models.PipelineState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := state
	return &copy, nil
}

func (s *MemoryStore) Save(ctx context.Context, state *models.PipelineState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DocumentID] = *state
	return nil
}
