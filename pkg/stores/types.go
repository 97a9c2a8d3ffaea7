package stores

import (
	"context"
	"errors"
)

// Sentinel errors for not-found conditions. Callers are expected to anticipate
// these: a missing destination resource during a diff means "does not exist",
// not a failure.
var (
	// ErrResourceNotFound is returned when a resource path has no row.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAttributeNotFound is returned when an attribute has no row.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrModuleNotFound is returned when a blueprint module has no row.
	ErrModuleNotFound = errors.New("blueprint module not found")

	// ErrMetadataNotFound is returned when a metadata key has no row.
	ErrMetadataNotFound = errors.New("metadata key not found")

	// ErrStoreExists is returned when Create would clobber an existing store.
	ErrStoreExists = errors.New("store already exists")

	// ErrStoreNotOpen is returned when the store is used before Create or Open.
	ErrStoreNotOpen = errors.New("store not open")
)

// ResourceRecord is the persisted row for one resource: its stable path and
// the provider version that was in effect when it was last saved.
type ResourceRecord struct {
	Path         string
	VersionMajor int
	VersionMinor int
	VersionBuild int
	VersionLabel string
}

// ModuleRecord is the persisted source text of one blueprint module.
type ModuleRecord struct {
	Path string
	Data string
}

// Store is the persistence boundary for resources, their attribute values,
// the blueprint source snapshot, and free-form metadata. Implementations must
// be safe for concurrent use by resource workers within an apply phase.
type Store interface {
	// CreateResource persists a resource row, recording the version in effect.
	CreateResource(ctx context.Context, rec *ResourceRecord) error

	// GetResource fetches a resource row. Fails with ErrResourceNotFound.
	GetResource(ctx context.Context, path string) (*ResourceRecord, error)

	// DeleteResource removes a resource row and, via cascade, its attributes.
	// Fails with ErrResourceNotFound.
	DeleteResource(ctx context.Context, path string) error

	// ListResourcePaths returns every persisted resource path.
	ListResourcePaths(ctx context.Context) ([]string, error)

	// CreateAttribute persists one attribute value for a resource.
	CreateAttribute(ctx context.Context, path, name string, value any) error

	// UpdateAttribute overwrites one attribute value, inserting if absent.
	UpdateAttribute(ctx context.Context, path, name string, value any) error

	// GetAttribute fetches one attribute value. Fails with
	// ErrResourceNotFound or ErrAttributeNotFound.
	GetAttribute(ctx context.Context, path, name string) (any, error)

	// DeleteAttribute removes one attribute value. Fails with
	// ErrResourceNotFound or ErrAttributeNotFound.
	DeleteAttribute(ctx context.Context, path, name string) error

	// CreateBlueprintModule persists one module's source text.
	CreateBlueprintModule(ctx context.Context, path, data string) error

	// GetBlueprintModule fetches one module. Fails with ErrModuleNotFound.
	GetBlueprintModule(ctx context.Context, path string) (*ModuleRecord, error)

	// ListBlueprintModules returns the full blueprint source snapshot.
	ListBlueprintModules(ctx context.Context) ([]*ModuleRecord, error)

	// DeleteAllBlueprintModules drops the blueprint module snapshot wholesale.
	DeleteAllBlueprintModules(ctx context.Context) error

	// CreateBlueprintPackage records one package path.
	CreateBlueprintPackage(ctx context.Context, path string) error

	// ListBlueprintPackages returns all recorded package paths.
	ListBlueprintPackages(ctx context.Context) ([]string, error)

	// DeleteAllBlueprintPackages drops the package snapshot wholesale.
	DeleteAllBlueprintPackages(ctx context.Context) error

	// SetMetadata writes a metadata key, inserting or overwriting.
	SetMetadata(ctx context.Context, key, value string) error

	// GetMetadata fetches a metadata key. Fails with ErrMetadataNotFound.
	GetMetadata(ctx context.Context, key string) (string, error)

	// DeleteMetadata removes a metadata key. Fails with ErrMetadataNotFound.
	DeleteMetadata(ctx context.Context, key string) error
}
