package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/automaton-store/internal/domain/scans"
)

const scanColumns = `id, title, asset, progress, agent_group_id, created_time`

type ScanRepository struct {
	r runner
}

var _ domain.Repository = (*ScanRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*domain.Scan, error) {
	var (
		s        domain.Scan
		asset    sql.NullString
		progress string
		group    sql.NullInt64
		created  string
	)
	if err := row.Scan(&s.ID, &s.Title, &asset, &progress, &group, &created); err != nil {
		return nil, err
	}
	p, err := domain.ParseProgress(progress)
	if err != nil {
		return nil, err
	}
	if s.CreatedTime, err = parseTime(created); err != nil {
		return nil, err
	}
	s.Asset = stringPtr(asset)
	s.Progress = p
	s.AgentGroupID = int64Ptr(group)
	return &s, nil
}

func collectScans(rows *sql.Rows) ([]*domain.Scan, error) {
	defer rows.Close()
	out := []*domain.Scan{}
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a scan that has not started yet.
func (r *ScanRepository) Create(ctx context.Context, ns domain.NewScan) (*domain.Scan, error) {
	created := ns.CreatedTime
	if created.IsZero() {
		created = time.Now()
	}
	scan := &domain.Scan{
		Title:       ns.Title,
		Asset:       ns.Asset,
		Progress:    domain.ProgressNotStarted,
		CreatedTime: created.UTC(),
	}
	err := r.r.run(ctx, func(t *txn) error {
		id, err := t.insert(ctx,
			`INSERT INTO scan (title, asset, progress, agent_group_id, created_time) VALUES (?, ?, ?, ?, ?)`,
			scan.Title, nullString(scan.Asset), string(scan.Progress), nil, formatTime(scan.CreatedTime))
		if err != nil {
			return fmt.Errorf("inserting scan: %w", err)
		}
		scan.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	var out *domain.Scan
	err := r.r.run(ctx, func(t *txn) error {
		s, err := scanScan(t.queryRow(ctx, `SELECT `+scanColumns+` FROM scan WHERE id = ?`, id))
		if err != nil {
			return notFound(err, "scan", id)
		}
		out = s
		return nil
	})
	return out, err
}

// List returns every scan in creation order.
func (r *ScanRepository) List(ctx context.Context) ([]*domain.Scan, error) {
	var out []*domain.Scan
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx, `SELECT `+scanColumns+` FROM scan ORDER BY id`)
		if err != nil {
			return err
		}
		out, err = collectScans(rows)
		return err
	})
	return out, err
}

func (r *ScanRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.r.run(ctx, func(t *txn) error {
		return t.queryRow(ctx, `SELECT COUNT(*) FROM scan`).Scan(&n)
	})
	return n, err
}

// Paginate with offset + limit, newest first
func (r *ScanRepository) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	result := domain.PaginatedResult{Page: page, PageSize: pageSize}
	err := r.r.run(ctx, func(t *txn) error {
		if err := t.queryRow(ctx, `SELECT COUNT(*) FROM scan`).Scan(&result.Total); err != nil {
			return fmt.Errorf("counting scans: %w", err)
		}
		rows, err := t.query(ctx, `SELECT `+scanColumns+` FROM scan ORDER BY id DESC LIMIT ? OFFSET ?`, pageSize, offset)
		if err != nil {
			return fmt.Errorf("querying scans: %w", err)
		}
		result.Data, err = collectScans(rows)
		return err
	})
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	result.TotalPages = int(math.Ceil(float64(result.Total) / float64(pageSize)))
	return result, nil
}

// Update writes back the mutable fields of a scan fetched earlier.
func (r *ScanRepository) Update(ctx context.Context, s *domain.Scan) error {
	return r.r.run(ctx, func(t *txn) error {
		if err := mustExist(ctx, t, "scan", s.ID); err != nil {
			return err
		}
		_, err := t.exec(ctx,
			`UPDATE scan SET title = ?, asset = ?, progress = ?, agent_group_id = ? WHERE id = ?`,
			s.Title, nullString(s.Asset), string(s.Progress), nullInt64(s.AgentGroupID), s.ID)
		return err
	})
}

func (r *ScanRepository) UpdateProgress(ctx context.Context, id domain.ScanID, p domain.Progress) error {
	if _, err := domain.ParseProgress(string(p)); err != nil {
		return err
	}
	return r.r.run(ctx, func(t *txn) error {
		if err := mustExist(ctx, t, "scan", id); err != nil {
			return err
		}
		_, err := t.exec(ctx, `UPDATE scan SET progress = ? WHERE id = ?`, string(p), id)
		return err
	})
}

// SetAgentGroup records the group that runs the scan. The reference is weak:
// the group id is not checked.
func (r *ScanRepository) SetAgentGroup(ctx context.Context, id domain.ScanID, agentGroupID int64) error {
	return r.r.run(ctx, func(t *txn) error {
		if err := mustExist(ctx, t, "scan", id); err != nil {
			return err
		}
		_, err := t.exec(ctx, `UPDATE scan SET agent_group_id = ? WHERE id = ?`, agentGroupID, id)
		return err
	})
}

type ScanStatusRepository struct {
	r runner
}

var _ domain.StatusRepository = (*ScanStatusRepository)(nil)

// Create appends a status entry. The same key may be recorded many times.
func (r *ScanStatusRepository) Create(ctx context.Context, key, value string, scanID domain.ScanID) (*domain.Status, error) {
	st := &domain.Status{Key: key, Value: value, ScanID: scanID}
	err := r.r.run(ctx, func(t *txn) error {
		id, err := t.insert(ctx, `INSERT INTO scan_status (status_key, value, scan_id) VALUES (?, ?, ?)`, key, value, scanID)
		if err != nil {
			return fmt.Errorf("inserting status of scan %d: %w", scanID, err)
		}
		st.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ListByScan returns the status history of a scan in insertion order.
func (r *ScanStatusRepository) ListByScan(ctx context.Context, scanID domain.ScanID) ([]*domain.Status, error) {
	out := []*domain.Status{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx, `SELECT id, status_key, value, scan_id FROM scan_status WHERE scan_id = ? ORDER BY id`, scanID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var st domain.Status
			if err := rows.Scan(&st.ID, &st.Key, &st.Value, &st.ScanID); err != nil {
				return err
			}
			out = append(out, &st)
		}
		return rows.Err()
	})
	return out, err
}

// Latest returns the last recorded status with the given key.
func (r *ScanStatusRepository) Latest(ctx context.Context, scanID domain.ScanID, key string) (*domain.Status, error) {
	var st domain.Status
	err := r.r.run(ctx, func(t *txn) error {
		err := t.queryRow(ctx,
			`SELECT id, status_key, value, scan_id FROM scan_status WHERE scan_id = ? AND status_key = ? ORDER BY id DESC LIMIT 1`,
			scanID, key).Scan(&st.ID, &st.Key, &st.Value, &st.ScanID)
		if err != nil {
			return notFound(err, "status "+key+" of scan", scanID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}
