package scans

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, s NewScan) (*Scan, error)
	Get(ctx context.Context, id ScanID) (*Scan, error)
	List(ctx context.Context) ([]*Scan, error)
	Count(ctx context.Context) (int64, error)
	Paginate(ctx context.Context, page, pageSize int) (PaginatedResult, error)
	Update(ctx context.Context, s *Scan) error
	UpdateProgress(ctx context.Context, id ScanID, p Progress) error
	SetAgentGroup(ctx context.Context, id ScanID, agentGroupID int64) error
}

// StatusRepository persists the status history of scans.
type StatusRepository interface {
	Create(ctx context.Context, key, value string, scanID ScanID) (*Status, error)
	ListByScan(ctx context.Context, scanID ScanID) ([]*Status, error)
	Latest(ctx context.Context, scanID ScanID, key string) (*Status, error)
}
