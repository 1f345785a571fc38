package db

import (
	"context"
	"fmt"

	domain "github.com/bryanwahyu/automaton-store/internal/domain/vulnerabilities"
)

const vulnerabilityColumns = `id, title, short_description, description, recommendation, technical_detail,
    risk_rating, cvss_v3_vector, dna, location, scan_id`

type VulnerabilityRepository struct {
	r runner
}

var _ domain.Repository = (*VulnerabilityRepository)(nil)

// Create validates the risk rating, renders the location and stores the
// finding with its references.
func (r *VulnerabilityRepository) Create(ctx context.Context, nv domain.NewVulnerability) (*domain.Vulnerability, error) {
	rating, err := domain.ParseRiskRating(nv.RiskRating)
	if err != nil {
		return nil, err
	}
	v := &domain.Vulnerability{
		Title:            nv.Title,
		ShortDescription: nv.ShortDescription,
		Description:      nv.Description,
		Recommendation:   nv.Recommendation,
		TechnicalDetail:  nv.TechnicalDetail,
		RiskRating:       rating,
		CVSSV3Vector:     nv.CVSSV3Vector,
		DNA:              nv.DNA,
		Location:         domain.RenderLocation(nv.Location, nv.Location.Metadata()),
		ScanID:           nv.ScanID,
	}
	err = r.r.run(ctx, func(t *txn) error {
		id, err := t.insert(ctx, `INSERT INTO vulnerability (title, short_description, description, recommendation,
    technical_detail, risk_rating, cvss_v3_vector, dna, location, scan_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.Title, v.ShortDescription, v.Description, v.Recommendation, v.TechnicalDetail,
			string(v.RiskRating), v.CVSSV3Vector, v.DNA, v.Location, v.ScanID)
		if err != nil {
			return fmt.Errorf("inserting vulnerability of scan %d: %w", v.ScanID, err)
		}
		v.ID = id
		for _, ref := range nv.References {
			if _, err := t.insert(ctx, `INSERT INTO vulnerability_reference (title, url, vulnerability_id) VALUES (?, ?, ?)`,
				ref.Title, ref.URL, id); err != nil {
				return fmt.Errorf("inserting reference %s: %w", ref.URL, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVulnerability(row rowScanner) (*domain.Vulnerability, error) {
	var (
		v    domain.Vulnerability
		risk string
	)
	err := row.Scan(&v.ID, &v.Title, &v.ShortDescription, &v.Description, &v.Recommendation,
		&v.TechnicalDetail, &risk, &v.CVSSV3Vector, &v.DNA, &v.Location, &v.ScanID)
	if err != nil {
		return nil, err
	}
	v.RiskRating = domain.RiskRating(risk)
	return &v, nil
}

func (r *VulnerabilityRepository) Get(ctx context.Context, id int64) (*domain.Vulnerability, error) {
	var out *domain.Vulnerability
	err := r.r.run(ctx, func(t *txn) error {
		v, err := scanVulnerability(t.queryRow(ctx, `SELECT `+vulnerabilityColumns+` FROM vulnerability WHERE id = ?`, id))
		if err != nil {
			return notFound(err, "vulnerability", id)
		}
		out = v
		return nil
	})
	return out, err
}

// ListByScan returns the findings of a scan in insertion order.
func (r *VulnerabilityRepository) ListByScan(ctx context.Context, scanID int64) ([]*domain.Vulnerability, error) {
	out := []*domain.Vulnerability{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx, `SELECT `+vulnerabilityColumns+` FROM vulnerability WHERE scan_id = ? ORDER BY id`, scanID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scanVulnerability(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func (r *VulnerabilityRepository) References(ctx context.Context, vulnerabilityID int64) ([]domain.Reference, error) {
	out := []domain.Reference{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx,
			`SELECT id, title, url, vulnerability_id FROM vulnerability_reference WHERE vulnerability_id = ? ORDER BY id`,
			vulnerabilityID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ref domain.Reference
			if err := rows.Scan(&ref.ID, &ref.Title, &ref.URL, &ref.VulnerabilityID); err != nil {
				return err
			}
			out = append(out, ref)
		}
		return rows.Err()
	})
	return out, err
}

// CountByRisk counts the findings of a scan per rating. Ratings without
// findings are absent from the map.
func (r *VulnerabilityRepository) CountByRisk(ctx context.Context, scanID int64) (map[domain.RiskRating]int, error) {
	out := map[domain.RiskRating]int{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx, `SELECT risk_rating, COUNT(*) FROM vulnerability WHERE scan_id = ? GROUP BY risk_rating`, scanID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				risk string
				n    int
			)
			if err := rows.Scan(&risk, &n); err != nil {
				return err
			}
			out[domain.RiskRating(risk)] = n
		}
		return rows.Err()
	})
	return out, err
}
