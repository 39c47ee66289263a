package folder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func testRef() VaultRef {
	return VaultRef{Context: models.VaultPersonal, VaultID: "vault-1"}
}

func w2Classification() models.ClassificationResult {
	return models.ClassificationResult{
		Category: models.CategoryIncome,
		Subtype:  models.SubtypeW2,
	}
}

func metaWithDate(date string) *models.ExtractedMetadata {
	return &models.ExtractedMetadata{
		DocumentDate: &models.MetadataField{Value: date, Confidence: 0.9, Source: models.SourceExtraction},
	}
}

func TestResolveCreatesMissingPath(t *testing.T) {
	r := NewResolver(NewMemoryStore(), logger.NewTestLogger())

	target, err := r.Resolve(context.Background(), testRef(), w2Classification(), metaWithDate("2024-03-15"))
	require.NoError(t, err)

	assert.True(t, target.Created)
	assert.Equal(t, []string{"Personal Documents", "Income", "2024", "W2"}, target.PathSegments)
	assert.Equal(t, "W2", target.Name)
	assert.NotEmpty(t, target.FolderID)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(NewMemoryStore(), logger.NewTestLogger())
	ctx := context.Background()

	first, err := r.Resolve(ctx, testRef(), w2Classification(), metaWithDate("2024-03-15"))
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := r.Resolve(ctx, testRef(), w2Classification(), metaWithDate("2024-03-15"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.FolderID, second.FolderID)
	assert.Equal(t, first.PathSegments, second.PathSegments)
}

func TestResolveUsesDocumentYear(t *testing.T) {
	r := NewResolver(NewMemoryStore(), logger.NewTestLogger())

	target, err := r.Resolve(context.Background(), testRef(), w2Classification(), metaWithDate("2019-06-01"))
	require.NoError(t, err)
	assert.Contains(t, target.PathSegments, "2019")
}

func TestResolveFallsBackToCurrentYear(t *testing.T) {
	r := NewResolver(NewMemoryStore(), logger.NewTestLogger())

	target, err := r.Resolve(context.Background(), testRef(), w2Classification(), nil)
	require.NoError(t, err)
	assert.Contains(t, target.PathSegments, time.Now().Format("2006"))
}

func TestResolveReusesFuzzyMatchedLeaf(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef()

	// User-built tree with a singular leaf name.
	root, err := store.CreateFolder(ctx, ref, "", "Personal Documents")
	require.NoError(t, err)
	identity, err := store.CreateFolder(ctx, ref, root.ID, "Identity")
	require.NoError(t, err)
	year, err := store.CreateFolder(ctx, ref, identity.ID, "2024")
	require.NoError(t, err)
	leaf, err := store.CreateFolder(ctx, ref, year.ID, "Driver's License")
	require.NoError(t, err)

	r := NewResolver(store, logger.NewTestLogger())
	classification := models.ClassificationResult{
		Category: models.CategoryIdentity,
		Subtype:  models.SubtypeDriversLicense, // canonical name "Driver Licenses"
	}

	target, err := r.Resolve(ctx, ref, classification, metaWithDate("2024-01-01"))
	require.NoError(t, err)

	assert.False(t, target.Created)
	assert.Equal(t, leaf.ID, target.FolderID)
	// The existing folder keeps its own name.
	assert.Equal(t, "Driver's License", target.Name)
}

func TestResolveDoesNotFuzzyMatchStructuralSegments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef()

	// A folder whose name is a near-miss of the root segment. Structural
	// levels must match exactly, so a fresh root is still created.
	_, err := store.CreateFolder(ctx, ref, "", "Personal Document Stuff")
	require.NoError(t, err)

	r := NewResolver(store, logger.NewTestLogger())
	target, err := r.Resolve(ctx, ref, w2Classification(), metaWithDate("2024-01-01"))
	require.NoError(t, err)

	assert.True(t, target.Created)
	assert.Equal(t, "Personal Documents", target.PathSegments[0])
}

func TestResolveNeedsReviewHoldingArea(t *testing.T) {
	r := NewResolver(NewMemoryStore(), logger.NewTestLogger())
	classification := models.ClassificationResult{
		Category:            models.CategoryInvoice,
		Subtype:             models.SubtypeInvoice,
		NeedsReview:         true,
		SuggestedFolderPath: []string{"Invoices", "2024"},
	}

	target, err := r.Resolve(context.Background(), testRef(), classification, metaWithDate("2024-05-01"))
	require.NoError(t, err)

	// The suggested path is never auto-created for review documents.
	assert.Equal(t, []string{models.NeedsReviewFolder}, target.PathSegments)
}

func TestResolveConcurrentSamePathCreatesOnce(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, logger.NewTestLogger())
	ctx := context.Background()
	ref := testRef()

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target, err := r.Resolve(ctx, ref, w2Classification(), metaWithDate("2024-03-15"))
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = target.FolderID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	nodes, err := store.ListFolders(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, nodes, 4) // root, category, year, leaf, each exactly once
}

// conflictingStore makes every first create of a name fail with a
// conflict after actually creating the folder, simulating a racing
// writer outside the resolver's lock.
type conflictingStore struct {
	*MemoryStore
	mu         sync.Mutex
	conflicted map[string]bool
}

func newConflictingStore() *conflictingStore {
	return &conflictingStore{
		MemoryStore: NewMemoryStore(),
		conflicted:  make(map[string]bool),
	}
}

func (s *conflictingStore) CreateFolder(ctx context.Context, ref VaultRef, parentID, name string) (models.FolderNode, error) {
	s.mu.Lock()
	first := !s.conflicted[name]
	s.conflicted[name] = true
	s.mu.Unlock()

	if first {
		// The "other writer" wins the race.
		if _, err := s.MemoryStore.CreateFolder(ctx, ref, parentID, name); err != nil {
			return models.FolderNode{}, err
		}
		return models.FolderNode{}, &ConflictError{Name: name, ParentID: parentID}
	}
	return s.MemoryStore.CreateFolder(ctx, ref, parentID, name)
}

func TestResolveAdoptsConflictWinner(t *testing.T) {
	store := newConflictingStore()
	r := NewResolver(store, logger.NewTestLogger())
	ctx := context.Background()
	ref := testRef()

	target, err := r.Resolve(ctx, ref, w2Classification(), metaWithDate("2024-03-15"))
	require.NoError(t, err)

	// Every segment conflicted and was adopted from the re-listed tree.
	assert.False(t, target.Created)
	assert.Equal(t, []string{"Personal Documents", "Income", "2024", "W2"}, target.PathSegments)

	nodes, err := store.ListFolders(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
}

func TestHintsFor(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := testRef()

	root, err := store.CreateFolder(ctx, ref, "", "Expenses")
	require.NoError(t, err)
	_, err = store.CreateFolder(ctx, ref, root.ID, "2024")
	require.NoError(t, err)

	r := NewResolver(store, logger.NewTestLogger())
	hints, err := r.HintsFor(ctx, ref)
	require.NoError(t, err)

	assert.True(t, hints.HasPath([]string{"Expenses", "2024"}))
	assert.True(t, hints.HasPath([]string{"expenses", "2024"})) // case-insensitive
	assert.False(t, hints.HasPath([]string{"Expenses", "2023"}))
}
