package assets

import "context"

// Repository port for the asset hierarchy. Every create writes the base row and
// the variant row (plus owned rows) atomically.
type Repository interface {
	CreateNetwork(ctx context.Context, scanID *int64, ranges []IPRange) (*Network, error)
	CreateUrls(ctx context.Context, scanID *int64, links []Link) (*Urls, error)
	CreateAndroidStore(ctx context.Context, scanID *int64, packageName, applicationName string) (*AndroidStore, error)
	CreateIosStore(ctx context.Context, scanID *int64, bundleID, applicationName string) (*IosStore, error)
	CreateAndroidFile(ctx context.Context, scanID *int64, packageName, path string) (*AndroidFile, error)
	CreateIosFile(ctx context.Context, scanID *int64, bundleID, path string) (*IosFile, error)
	CreateFromDefinitions(ctx context.Context, scanID *int64, defs []Definition) ([]Asset, error)

	Get(ctx context.Context, id int64) (*Asset, error)
	List(ctx context.Context) ([]Asset, error)
	ListByScan(ctx context.Context, scanID int64) ([]Asset, error)
	ListByKind(ctx context.Context, kind Kind) ([]Asset, error)

	GetNetwork(ctx context.Context, id int64) (*Network, error)
	GetUrls(ctx context.Context, id int64) (*Urls, error)
	GetAndroidStore(ctx context.Context, id int64) (*AndroidStore, error)
	GetIosStore(ctx context.Context, id int64) (*IosStore, error)
	GetAndroidFile(ctx context.Context, id int64) (*AndroidFile, error)
	GetIosFile(ctx context.Context, id int64) (*IosFile, error)

	Delete(ctx context.Context, id int64) error
}
