package agents

import "context"

// Repository port for agents and their arguments.
type Repository interface {
	Create(ctx context.Context, key string) (*Agent, error)
	Get(ctx context.Context, id int64) (*Agent, error)
	GetByKey(ctx context.Context, key string) (*Agent, error)
	List(ctx context.Context) ([]*Agent, error)
	CreateArgument(ctx context.Context, a NewArgument) (*Argument, error)
	Arguments(ctx context.Context, agentID int64) ([]*Argument, error)
	Groups(ctx context.Context, agentID int64) ([]*Group, error)
}

// GroupRepository port for agent groups, their members and asset types.
type GroupRepository interface {
	Create(ctx context.Context, name, description string, assetTypeIDs ...int64) (*Group, error)
	CreateFromDefinition(ctx context.Context, def GroupDefinition) (*Group, error)
	Get(ctx context.Context, id int64) (*Group, error)
	List(ctx context.Context) ([]*Group, error)
	Map(ctx context.Context, agentID, groupID int64) (*GroupMapping, error)
	Agents(ctx context.Context, groupID int64) ([]*Agent, error)
	AddAssetTypes(ctx context.Context, groupID int64, assetTypeIDs ...int64) error
	AssetTypes(ctx context.Context, groupID int64) ([]*AssetType, error)
	GetByAssetType(ctx context.Context, assetType string) ([]*Group, error)
}

// AssetTypeRepository port for capability tags.
type AssetTypeRepository interface {
	Create(ctx context.Context, assetType string) (*AssetType, error)
	List(ctx context.Context) ([]*AssetType, error)
	FindByType(ctx context.Context, assetType string) ([]*AssetType, error)
}
