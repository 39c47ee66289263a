package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/storage/minio"
	"github.com/feichai0017/docfiler/pkg/storage/s3"
)

// StorageType selects the blob backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage is the blob store behind the upload path.
type Storage interface {
	// Store writes the blob and returns its key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens the blob for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes blobs older than the threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage is the factory for blob storage backends.
func NewStorage(storageType StorageType, logger logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(logger)
	case StorageTypeMinio:
		return minio.GetClient(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// VaultKey builds the storage key for an uploaded document. Keys are
// prefixed per vault so listing and cleanup stay scoped.
func VaultKey(vaultID, documentID, fileName string) string {
	return path.Join("vaults", vaultID, "documents", documentID, fileName)
}
