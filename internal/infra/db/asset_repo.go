package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/automaton-store/internal/domain/assets"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
)

type AssetRepository struct {
	r runner
}

var _ domain.Repository = (*AssetRepository)(nil)

// variantTable maps each kind onto the table holding its variant row.
var variantTable = map[domain.Kind]string{
	domain.KindNetwork:      "network",
	domain.KindUrls:         "urls",
	domain.KindAndroidStore: "android_store",
	domain.KindIosStore:     "ios_store",
	domain.KindAndroidFile:  "android_file",
	domain.KindIosFile:      "ios_file",
}

// insertBase writes the shared asset row and returns its id.
func insertBase(ctx context.Context, t *txn, kind domain.Kind, scanID *int64) (domain.Asset, error) {
	id, err := t.insert(ctx, `INSERT INTO asset (type, scan_id) VALUES (?, ?)`, string(kind), nullInt64(scanID))
	if err != nil {
		return domain.Asset{}, fmt.Errorf("inserting %s asset: %w", kind, err)
	}
	return domain.Asset{ID: id, Kind: kind, ScanID: scanID}, nil
}

func createNetwork(ctx context.Context, t *txn, scanID *int64, ranges []domain.IPRange) (*domain.Network, error) {
	base, err := insertBase(ctx, t, domain.KindNetwork, scanID)
	if err != nil {
		return nil, err
	}
	if _, err := t.exec(ctx, `INSERT INTO network (id) VALUES (?)`, base.ID); err != nil {
		return nil, err
	}
	n := &domain.Network{Asset: base, Networks: []domain.IPRange{}}
	for _, rg := range ranges {
		id, err := t.insert(ctx, `INSERT INTO ip_range (host, mask, network_asset_id) VALUES (?, ?, ?)`, rg.Host, rg.Mask, base.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting range %s/%s: %w", rg.Host, rg.Mask, err)
		}
		n.Networks = append(n.Networks, domain.IPRange{ID: id, NetworkAssetID: base.ID, Host: rg.Host, Mask: rg.Mask})
	}
	return n, nil
}

func createUrls(ctx context.Context, t *txn, scanID *int64, links []domain.Link) (*domain.Urls, error) {
	base, err := insertBase(ctx, t, domain.KindUrls, scanID)
	if err != nil {
		return nil, err
	}
	if _, err := t.exec(ctx, `INSERT INTO urls (id) VALUES (?)`, base.ID); err != nil {
		return nil, err
	}
	u := &domain.Urls{Asset: base, Links: []domain.Link{}}
	for _, l := range links {
		method := l.Method
		if method == "" {
			method = domain.DefaultMethod
		}
		id, err := t.insert(ctx, `INSERT INTO link (url, method, urls_asset_id) VALUES (?, ?, ?)`, l.URL, method, base.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting link %s: %w", l.URL, err)
		}
		u.Links = append(u.Links, domain.Link{ID: id, UrlsAssetID: base.ID, URL: l.URL, Method: method})
	}
	return u, nil
}

// createPair handles the four variants made of two text columns.
func createPair(ctx context.Context, t *txn, kind domain.Kind, scanID *int64, col1, col2, v1, v2 string) (domain.Asset, error) {
	base, err := insertBase(ctx, t, kind, scanID)
	if err != nil {
		return domain.Asset{}, err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, %s, %s) VALUES (?, ?, ?)`, variantTable[kind], col1, col2)
	if _, err := t.exec(ctx, q, base.ID, v1, v2); err != nil {
		return domain.Asset{}, fmt.Errorf("inserting %s asset: %w", kind, err)
	}
	return base, nil
}

func createFromDefinition(ctx context.Context, t *txn, scanID *int64, def domain.Definition) (domain.Asset, error) {
	switch d := def.(type) {
	case domain.NetworkDefinition:
		n, err := createNetwork(ctx, t, scanID, d.Ranges)
		if err != nil {
			return domain.Asset{}, err
		}
		return n.Asset, nil
	case domain.UrlsDefinition:
		u, err := createUrls(ctx, t, scanID, d.Links)
		if err != nil {
			return domain.Asset{}, err
		}
		return u.Asset, nil
	case domain.AndroidStoreDefinition:
		return createPair(ctx, t, domain.KindAndroidStore, scanID, "package_name", "application_name", d.PackageName, d.ApplicationName)
	case domain.IosStoreDefinition:
		return createPair(ctx, t, domain.KindIosStore, scanID, "bundle_id", "application_name", d.BundleID, d.ApplicationName)
	case domain.AndroidFileDefinition:
		return createPair(ctx, t, domain.KindAndroidFile, scanID, "package_name", "path", d.PackageName, d.Path)
	case domain.IosFileDefinition:
		return createPair(ctx, t, domain.KindIosFile, scanID, "bundle_id", "path", d.BundleID, d.Path)
	}
	return domain.Asset{}, fmt.Errorf("unsupported asset definition %T", def)
}

// CreateNetwork stores a network asset with its ranges.
func (r *AssetRepository) CreateNetwork(ctx context.Context, scanID *int64, ranges []domain.IPRange) (*domain.Network, error) {
	var out *domain.Network
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createNetwork(ctx, t, scanID, ranges)
		return err
	})
	return out, err
}

// CreateUrls stores a urls asset with its links. Links without a method get GET.
func (r *AssetRepository) CreateUrls(ctx context.Context, scanID *int64, links []domain.Link) (*domain.Urls, error) {
	var out *domain.Urls
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createUrls(ctx, t, scanID, links)
		return err
	})
	return out, err
}

func (r *AssetRepository) CreateAndroidStore(ctx context.Context, scanID *int64, packageName, applicationName string) (*domain.AndroidStore, error) {
	var out *domain.AndroidStore
	err := r.r.run(ctx, func(t *txn) error {
		base, err := createPair(ctx, t, domain.KindAndroidStore, scanID, "package_name", "application_name", packageName, applicationName)
		if err != nil {
			return err
		}
		out = &domain.AndroidStore{Asset: base, PackageName: packageName, ApplicationName: applicationName}
		return nil
	})
	return out, err
}

func (r *AssetRepository) CreateIosStore(ctx context.Context, scanID *int64, bundleID, applicationName string) (*domain.IosStore, error) {
	var out *domain.IosStore
	err := r.r.run(ctx, func(t *txn) error {
		base, err := createPair(ctx, t, domain.KindIosStore, scanID, "bundle_id", "application_name", bundleID, applicationName)
		if err != nil {
			return err
		}
		out = &domain.IosStore{Asset: base, BundleID: bundleID, ApplicationName: applicationName}
		return nil
	})
	return out, err
}

func (r *AssetRepository) CreateAndroidFile(ctx context.Context, scanID *int64, packageName, path string) (*domain.AndroidFile, error) {
	var out *domain.AndroidFile
	err := r.r.run(ctx, func(t *txn) error {
		base, err := createPair(ctx, t, domain.KindAndroidFile, scanID, "package_name", "path", packageName, path)
		if err != nil {
			return err
		}
		out = &domain.AndroidFile{Asset: base, PackageName: packageName, Path: path}
		return nil
	})
	return out, err
}

func (r *AssetRepository) CreateIosFile(ctx context.Context, scanID *int64, bundleID, path string) (*domain.IosFile, error) {
	var out *domain.IosFile
	err := r.r.run(ctx, func(t *txn) error {
		base, err := createPair(ctx, t, domain.KindIosFile, scanID, "bundle_id", "path", bundleID, path)
		if err != nil {
			return err
		}
		out = &domain.IosFile{Asset: base, BundleID: bundleID, Path: path}
		return nil
	})
	return out, err
}

// CreateFromDefinitions persists every definition in order, all or nothing.
func (r *AssetRepository) CreateFromDefinitions(ctx context.Context, scanID *int64, defs []domain.Definition) ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(defs))
	err := r.r.run(ctx, func(t *txn) error {
		for _, def := range defs {
			a, err := createFromDefinition(ctx, t, scanID, def)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanAsset(row rowScanner) (domain.Asset, error) {
	var (
		a      domain.Asset
		kind   string
		scanID sql.NullInt64
	)
	if err := row.Scan(&a.ID, &kind, &scanID); err != nil {
		return domain.Asset{}, err
	}
	a.Kind = domain.Kind(kind)
	a.ScanID = int64Ptr(scanID)
	return a, nil
}

func (r *AssetRepository) listAssets(ctx context.Context, where string, args ...any) ([]domain.Asset, error) {
	out := []domain.Asset{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx, `SELECT id, type, scan_id FROM asset`+where+` ORDER BY id`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAsset(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

func (r *AssetRepository) List(ctx context.Context) ([]domain.Asset, error) {
	return r.listAssets(ctx, "")
}

func (r *AssetRepository) ListByScan(ctx context.Context, scanID int64) ([]domain.Asset, error) {
	return r.listAssets(ctx, " WHERE scan_id = ?", scanID)
}

func (r *AssetRepository) ListByKind(ctx context.Context, kind domain.Kind) ([]domain.Asset, error) {
	return r.listAssets(ctx, " WHERE type = ?", string(kind))
}

func getBase(ctx context.Context, t *txn, id int64) (domain.Asset, error) {
	a, err := scanAsset(t.queryRow(ctx, `SELECT id, type, scan_id FROM asset WHERE id = ?`, id))
	if err != nil {
		return domain.Asset{}, notFound(err, "asset", id)
	}
	return a, nil
}

// getKind loads the base row and insists on its kind. An asset of another
// kind is reported as not found.
func getKind(ctx context.Context, t *txn, id int64, kind domain.Kind) (domain.Asset, error) {
	a, err := getBase(ctx, t, id)
	if err != nil {
		return domain.Asset{}, err
	}
	if a.Kind != kind {
		return domain.Asset{}, fmt.Errorf("%s asset %d: %w", kind, id, storage.ErrNotFound)
	}
	return a, nil
}

func (r *AssetRepository) Get(ctx context.Context, id int64) (*domain.Asset, error) {
	var out domain.Asset
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = getBase(ctx, t, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AssetRepository) GetNetwork(ctx context.Context, id int64) (*domain.Network, error) {
	var out *domain.Network
	err := r.r.run(ctx, func(t *txn) error {
		base, err := getKind(ctx, t, id, domain.KindNetwork)
		if err != nil {
			return err
		}
		rows, err := t.query(ctx, `SELECT id, host, mask, network_asset_id FROM ip_range WHERE network_asset_id = ? ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		n := &domain.Network{Asset: base, Networks: []domain.IPRange{}}
		for rows.Next() {
			var rg domain.IPRange
			if err := rows.Scan(&rg.ID, &rg.Host, &rg.Mask, &rg.NetworkAssetID); err != nil {
				return err
			}
			n.Networks = append(n.Networks, rg)
		}
		out = n
		return rows.Err()
	})
	return out, err
}

func (r *AssetRepository) GetUrls(ctx context.Context, id int64) (*domain.Urls, error) {
	var out *domain.Urls
	err := r.r.run(ctx, func(t *txn) error {
		base, err := getKind(ctx, t, id, domain.KindUrls)
		if err != nil {
			return err
		}
		rows, err := t.query(ctx, `SELECT id, url, method, urls_asset_id FROM link WHERE urls_asset_id = ? ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		u := &domain.Urls{Asset: base, Links: []domain.Link{}}
		for rows.Next() {
			var l domain.Link
			if err := rows.Scan(&l.ID, &l.URL, &l.Method, &l.UrlsAssetID); err != nil {
				return err
			}
			u.Links = append(u.Links, l)
		}
		out = u
		return rows.Err()
	})
	return out, err
}

// getPair reads the two text columns of a variant row after checking the kind.
func (r *AssetRepository) getPair(ctx context.Context, id int64, kind domain.Kind, col1, col2 string) (domain.Asset, string, string, error) {
	var (
		base   domain.Asset
		v1, v2 string
	)
	err := r.r.run(ctx, func(t *txn) (err error) {
		if base, err = getKind(ctx, t, id, kind); err != nil {
			return err
		}
		q := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE id = ?`, col1, col2, variantTable[kind])
		return notFound(t.queryRow(ctx, q, id).Scan(&v1, &v2), string(kind)+" asset", id)
	})
	return base, v1, v2, err
}

func (r *AssetRepository) GetAndroidStore(ctx context.Context, id int64) (*domain.AndroidStore, error) {
	base, pkg, name, err := r.getPair(ctx, id, domain.KindAndroidStore, "package_name", "application_name")
	if err != nil {
		return nil, err
	}
	return &domain.AndroidStore{Asset: base, PackageName: pkg, ApplicationName: name}, nil
}

func (r *AssetRepository) GetIosStore(ctx context.Context, id int64) (*domain.IosStore, error) {
	base, bundle, name, err := r.getPair(ctx, id, domain.KindIosStore, "bundle_id", "application_name")
	if err != nil {
		return nil, err
	}
	return &domain.IosStore{Asset: base, BundleID: bundle, ApplicationName: name}, nil
}

func (r *AssetRepository) GetAndroidFile(ctx context.Context, id int64) (*domain.AndroidFile, error) {
	base, pkg, path, err := r.getPair(ctx, id, domain.KindAndroidFile, "package_name", "path")
	if err != nil {
		return nil, err
	}
	return &domain.AndroidFile{Asset: base, PackageName: pkg, Path: path}, nil
}

func (r *AssetRepository) GetIosFile(ctx context.Context, id int64) (*domain.IosFile, error) {
	base, bundle, path, err := r.getPair(ctx, id, domain.KindIosFile, "bundle_id", "path")
	if err != nil {
		return nil, err
	}
	return &domain.IosFile{Asset: base, BundleID: bundle, Path: path}, nil
}

// Delete removes an asset with its variant and owned rows. Deleting an id that
// does not exist is not an error.
func (r *AssetRepository) Delete(ctx context.Context, id int64) error {
	return r.r.run(ctx, func(t *txn) error {
		base, err := getBase(ctx, t, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		switch base.Kind {
		case domain.KindNetwork:
			if _, err := t.exec(ctx, `DELETE FROM ip_range WHERE network_asset_id = ?`, id); err != nil {
				return err
			}
		case domain.KindUrls:
			if _, err := t.exec(ctx, `DELETE FROM link WHERE urls_asset_id = ?`, id); err != nil {
				return err
			}
		}
		if table, ok := variantTable[base.Kind]; ok {
			if _, err := t.exec(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
				return err
			}
		}
		_, err = t.exec(ctx, `DELETE FROM asset WHERE id = ?`, id)
		return err
	})
}
