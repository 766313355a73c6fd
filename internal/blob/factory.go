package blob

import (
	"context"
	"fmt"
	"os"

	"creaturecore/internal/infra/blob/fs"
	memorystore "creaturecore/internal/infra/blob/memory"
	infraS3 "creaturecore/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation using environment variables.
//
//	CREATURECORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	CREATURECORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 driver package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CREATURECORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("CREATURECORE_BLOB_FS_ROOT")
		return fs.New(root)
	case DriverS3:
		return infraS3.OpenFromEnv(ctx)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed blob.Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// S3Config re-exports the S3 driver configuration type.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests exposes the lightweight in-memory S3 mock for
// cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
