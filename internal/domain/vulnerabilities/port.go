package vulnerabilities

import "context"

// Repository port for vulnerabilities and their references.
type Repository interface {
	Create(ctx context.Context, v NewVulnerability) (*Vulnerability, error)
	Get(ctx context.Context, id int64) (*Vulnerability, error)
	ListByScan(ctx context.Context, scanID int64) ([]*Vulnerability, error)
	References(ctx context.Context, vulnerabilityID int64) ([]Reference, error)
	CountByRisk(ctx context.Context, scanID int64) (map[RiskRating]int, error)
}
