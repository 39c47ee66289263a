package folder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// Resolver turns a classification into a concrete destination folder,
// reusing existing folders where names match and creating only the missing
// suffix of the path. All writes for one vault are serialized so the same
// path is never created twice.
type Resolver struct {
	store  FolderStore
	logger logger.Logger

	mu         sync.Mutex
	vaultLocks map[string]*sync.Mutex
}

func NewResolver(store FolderStore, log logger.Logger) *Resolver {
	return &Resolver{
		store:      store,
		logger:     log,
		vaultLocks: make(map[string]*sync.Mutex),
	}
}

func (r *Resolver) vaultLock(ref VaultRef) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.vaultLocks[ref.key()]
	if !ok {
		lock = &sync.Mutex{}
		r.vaultLocks[ref.key()] = lock
	}
	return lock
}

// HintsFor returns folder hints for the classifier, backed by a fresh
// snapshot of the vault's tree.
func (r *Resolver) HintsFor(ctx context.Context, ref VaultRef) (*Hints, error) {
	nodes, err := r.store.ListFolders(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return NewHints(nodes), nil
}

// Resolve finds or creates the destination folder for a classified
// document. Documents flagged for review land in the holding area; their
// suggested paths are never auto-created.
func (r *Resolver) Resolve(ctx context.Context, ref VaultRef, classification models.ClassificationResult, meta *models.ExtractedMetadata) (models.TargetFolder, error) {
	path := r.targetPath(ref, classification, meta)

	lock := r.vaultLock(ref)
	lock.Lock()
	defer lock.Unlock()

	nodes, err := r.store.ListFolders(ctx, ref)
	if err != nil {
		return models.TargetFolder{}, fmt.Errorf("failed to list folders: %w", err)
	}
	t := newTree(nodes)

	// Whole-path match first: nothing to create.
	if node, ok := t.lookup(path); ok {
		return models.TargetFolder{
			FolderID:     node.ID,
			Name:         node.Name,
			PathSegments: node.PathSegments,
			Created:      false,
		}, nil
	}

	return r.walkAndCreate(ctx, ref, t, path)
}

// targetPath rebuilds the canonical path with the document's own year when
// normalization produced a date, else the current year.
func (r *Resolver) targetPath(ref VaultRef, classification models.ClassificationResult, meta *models.ExtractedMetadata) []string {
	if classification.NeedsReview {
		return []string{models.NeedsReviewFolder}
	}
	year := time.Now().Format("2006")
	if meta != nil && meta.DocumentDate != nil && len(meta.DocumentDate.Value) >= 4 {
		year = meta.DocumentDate.Value[:4]
	}
	return models.FolderPathFor(ref.Context, classification.Category, classification.Subtype, year)
}

// walkAndCreate walks the path from the root, adopting existing folders
// (fuzzy matching on the deepest two segments) and creating the missing
// suffix. A create that loses a race re-lists and adopts the winner.
func (r *Resolver) walkAndCreate(ctx context.Context, ref VaultRef, t *tree, path []string) (models.TargetFolder, error) {
	var parentID string
	actual := make([]string, 0, len(path))
	createdAny := false
	var current models.FolderNode

	for i, segment := range path {
		fuzzy := i >= len(path)-2
		if node, ok := t.child(parentID, segment, fuzzy); ok {
			current = node
			parentID = node.ID
			actual = append(actual, node.Name)
			continue
		}

		node, err := r.store.CreateFolder(ctx, ref, parentID, segment)
		if IsConflict(err) {
			// Another writer created it between our snapshot and now.
			nodes, listErr := r.store.ListFolders(ctx, ref)
			if listErr != nil {
				return models.TargetFolder{}, fmt.Errorf("failed to re-list after conflict: %w", listErr)
			}
			t = newTree(nodes)
			winner, ok := t.child(parentID, segment, fuzzy)
			if !ok {
				return models.TargetFolder{}, fmt.Errorf("folder %q conflicted but is not visible after re-list", segment)
			}
			node = winner
		} else if err != nil {
			return models.TargetFolder{}, fmt.Errorf("failed to create folder %q: %w", segment, err)
		} else {
			createdAny = true
			t.byID[node.ID] = node
			t.byPath[pathKey(node.PathSegments)] = node
			t.childrenOf[parentID] = append(t.childrenOf[parentID], node)
			r.logger.Info("created folder",
				logger.String("vault_id", ref.VaultID),
				logger.String("name", node.Name),
				logger.String("parent_id", parentID))
		}

		current = node
		parentID = node.ID
		actual = append(actual, node.Name)
	}

	return models.TargetFolder{
		FolderID:     current.ID,
		Name:         current.Name,
		PathSegments: actual,
		Created:      createdAny,
	}, nil
}
