package apikeys

import "context"

// APIKey is the locally issued credential. At most one exists at a time.
type APIKey struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

// Repository port for the single active credential.
type Repository interface {
	GetOrCreate(ctx context.Context) (*APIKey, error)
	Refresh(ctx context.Context) (*APIKey, error)
	IsValid(ctx context.Context, candidate string) (bool, error)
}
