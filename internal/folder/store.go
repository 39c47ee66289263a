package folder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/feichai0017/docfiler/internal/models"
)

// VaultRef identifies one folder tree.
type VaultRef struct {
	Context models.VaultContext
	VaultID string
}

func (v VaultRef) key() string {
	return string(v.Context) + ":" + v.VaultID
}

// FolderStore is the storage collaborator owning the folder trees. The
// resolver only ever lists a snapshot and creates single folders.
type FolderStore interface {
	ListFolders(ctx context.Context, ref VaultRef) ([]models.FolderNode, error)
	CreateFolder(ctx context.Context, ref VaultRef, parentID, name string) (models.FolderNode, error)
}

// ConflictError reports a create that lost a duplicate-sibling race.
type ConflictError struct {
	Name     string
	ParentID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("folder %q already exists under parent %q", e.Name, e.ParentID)
}

// IsConflict reports whether err is a duplicate-sibling conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// MemoryStore is an in-memory FolderStore, used in tests and as the
// default backend when no external document store is wired.
type MemoryStore struct {
	mu     sync.Mutex
	vaults map[string][]models.FolderNode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vaults: make(map[string][]models.FolderNode)}
}

func (s *MemoryStore) ListFolders(ctx context.Context, ref VaultRef) ([]models.FolderNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.vaults[ref.key()]
	out := make([]models.FolderNode, len(nodes))
	copy(out, nodes)
	return out, nil
}

func (s *MemoryStore) CreateFolder(ctx context.Context, ref VaultRef, parentID, name string) (models.FolderNode, error) {
	if err := ctx.Err(); err != nil {
		return models.FolderNode{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.key()
	var parentSegments []string
	if parentID != "" {
		found := false
		for _, n := range s.vaults[key] {
			if n.ID == parentID {
				parentSegments = n.PathSegments
				found = true
				break
			}
		}
		if !found {
			return models.FolderNode{}, fmt.Errorf("parent folder %q not found", parentID)
		}
	}

	for _, n := range s.vaults[key] {
		if n.ParentID == parentID && n.Name == name {
			return models.FolderNode{}, &ConflictError{Name: name, ParentID: parentID}
		}
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
	s.vaults[key] = append(s.vaults[key], node)
	return node, nil
}
