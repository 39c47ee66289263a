package folder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/docfiler/internal/models"
)

const (
	folderNodesKeyFormat = "folders:%s"
	folderIndexKeyFormat = "folders:%s:idx"
)

// createFolderScript claims the sibling slot and writes the node in one
// atomic step. Concurrent creates of the same name serialize inside redis,
// and the loser always finds the winner's node on its next list.
var createFolderScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[2], ARGV[3])
return 1
`)

// RedisStore keeps each vault's folder tree in redis so the server and
// worker binaries share one tree. The per-vault no-duplicate guarantee
// holds across processes, not just within one resolver.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) ListFolders(ctx context.Context, ref VaultRef) ([]models.FolderNode, error) {
	entries, err := s.client.HGetAll(ctx, fmt.Sprintf(folderNodesKeyFormat, ref.key())).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	nodes := make([]models.FolderNode, 0, len(entries))
	for id, data := range entries {
		var node models.FolderNode
		if err := json.Unmarshal([]byte(data), &node); err != nil {
			return nil, fmt.Errorf("failed to decode folder %q: %w", id, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *RedisStore) CreateFolder(ctx context.Context, ref VaultRef, parentID, name string) (models.FolderNode, error) {
	nodesKey := fmt.Sprintf(folderNodesKeyFormat, ref.key())
	indexKey := fmt.Sprintf(folderIndexKeyFormat, ref.key())

	var parentSegments []string
	if parentID != "" {
		data, err := s.client.HGet(ctx, nodesKey, parentID).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.FolderNode{}, fmt.Errorf("parent folder %q not found", parentID)
		}
		if err != nil {
			return models.FolderNode{}, fmt.Errorf("failed to load parent folder: %w", err)
		}
		var parent models.FolderNode
		if err := json.Unmarshal(data, &parent); err != nil {
			return models.FolderNode{}, fmt.Errorf("failed to decode parent folder: %w", err)
		}
		parentSegments = parent.PathSegments
	}

	segments := make([]string, 0, len(parentSegments)+1)
	segments = append(segments, parentSegments...)
	segments = append(segments, name)

	node := models.FolderNode{
		ID:           uuid.New().String(),
		Name:         name,
		PathSegments: segments,
		ParentID:     parentID,
	}
	data, err := json.Marshal(node)
	if err != nil {
		return models.FolderNode{}, fmt.Errorf("failed to encode folder: %w", err)
	}

	created, err := createFolderScript.Run(ctx, s.client,
		[]string{nodesKey, indexKey},
		parentID+"/"+name, node.ID, data).Int()
	if err != nil {
		return models.FolderNode{}, fmt.Errorf("failed to create folder: %w", err)
	}
	if created == 0 {
		return models.FolderNode{}, &ConflictError{Name: name, ParentID: parentID}
	}
	return node, nil
}
