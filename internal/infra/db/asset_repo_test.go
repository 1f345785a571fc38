package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-store/internal/domain/assets"
	"github.com/bryanwahyu/automaton-store/internal/domain/scans"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
)

func countRows(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.run(context.Background(), func(tx *txn) error {
		return tx.queryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	}))
	return n
}

func TestAssetRepository_EachVariantHasOneBaseRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Assets()

	network, err := repo.CreateNetwork(ctx, nil, []assets.IPRange{{Host: "8.8.8.8", Mask: "24"}, {Host: "10.0.0.1", Mask: "32"}})
	require.NoError(t, err)
	urls, err := repo.CreateUrls(ctx, nil, []assets.Link{{URL: "https://example.com"}, {URL: "https://example.com/login", Method: "POST"}})
	require.NoError(t, err)
	androidStore, err := repo.CreateAndroidStore(ctx, nil, "a.b.c", "Example")
	require.NoError(t, err)
	iosStore, err := repo.CreateIosStore(ctx, nil, "x.y.z", "Example")
	require.NoError(t, err)
	androidFile, err := repo.CreateAndroidFile(ctx, nil, "a.b.c", "/tmp/app.apk")
	require.NoError(t, err)
	iosFile, err := repo.CreateIosFile(ctx, nil, "x.y.z", "/tmp/app.ipa")
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	wantKinds := []assets.Kind{
		assets.KindNetwork, assets.KindUrls, assets.KindAndroidStore,
		assets.KindIosStore, assets.KindAndroidFile, assets.KindIosFile,
	}
	wantIDs := []int64{network.ID, urls.ID, androidStore.ID, iosStore.ID, androidFile.ID, iosFile.ID}
	for i, a := range all {
		assert.Equal(t, wantKinds[i], a.Kind)
		assert.Equal(t, wantIDs[i], a.ID)
	}
	for _, table := range []string{"network", "urls", "android_store", "ios_store", "android_file", "ios_file"} {
		assert.Equal(t, 1, countRows(t, store, table), table)
	}
	assert.Equal(t, 2, countRows(t, store, "ip_range"))
	assert.Equal(t, 2, countRows(t, store, "link"))
}

func TestAssetRepository_TypedGetters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Assets()

	network, err := repo.CreateNetwork(ctx, nil, []assets.IPRange{{Host: "8.8.8.8", Mask: "24"}})
	require.NoError(t, err)
	urls, err := repo.CreateUrls(ctx, nil, []assets.Link{{URL: "https://example.com"}})
	require.NoError(t, err)
	file, err := repo.CreateIosFile(ctx, nil, "x.y.z", "/tmp/app.ipa")
	require.NoError(t, err)

	gotNetwork, err := repo.GetNetwork(ctx, network.ID)
	require.NoError(t, err)
	assert.Equal(t, network, gotNetwork)

	gotUrls, err := repo.GetUrls(ctx, urls.ID)
	require.NoError(t, err)
	require.Len(t, gotUrls.Links, 1)
	assert.Equal(t, assets.DefaultMethod, gotUrls.Links[0].Method)
	assert.Equal(t, urls.ID, gotUrls.Links[0].UrlsAssetID)

	gotFile, err := repo.GetIosFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/app.ipa", gotFile.Path)
	assert.Equal(t, assets.KindIosFile, gotFile.Kind)

	_, err = repo.GetAndroidStore(ctx, file.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetNetwork(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetRepository_DuplicateStoreAssetsAreDistinct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Assets().CreateAndroidStore(ctx, nil, "a.b.c", "Example")
	require.NoError(t, err)
	second, err := store.Assets().CreateAndroidStore(ctx, nil, "a.b.c", "Example")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	kind, err := store.Assets().ListByKind(ctx, assets.KindAndroidStore)
	require.NoError(t, err)
	assert.Len(t, kind, 2)
}

func TestAssetRepository_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Assets()

	network, err := repo.CreateNetwork(ctx, nil, []assets.IPRange{{Host: "8.8.8.8", Mask: "24"}})
	require.NoError(t, err)
	urls, err := repo.CreateUrls(ctx, nil, []assets.Link{{URL: "https://example.com"}})
	require.NoError(t, err)
	app, err := repo.CreateAndroidStore(ctx, nil, "a.b.c", "Example")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, network.ID))
	require.NoError(t, repo.Delete(ctx, urls.ID))
	require.NoError(t, repo.Delete(ctx, app.ID))

	for _, table := range []string{"asset", "network", "ip_range", "urls", "link", "android_store"} {
		assert.Zero(t, countRows(t, store, table), table)
	}
	_, err = repo.Get(ctx, network.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetRepository_DeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Assets().Delete(context.Background(), 12345))
}

func TestAssetRepository_ListByScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s, err := store.Scans().Create(ctx, scans.NewScan{Title: "test"})
	require.NoError(t, err)
	_, err = store.Assets().CreateIosStore(ctx, &s.ID, "x.y.z", "Example")
	require.NoError(t, err)
	_, err = store.Assets().CreateIosStore(ctx, nil, "x.y.z", "Unattached")
	require.NoError(t, err)

	byScan, err := store.Assets().ListByScan(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, byScan, 1)
	require.NotNil(t, byScan[0].ScanID)
	assert.Equal(t, s.ID, *byScan[0].ScanID)
}

func TestAssetRepository_CreateFromDefinitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Assets().CreateFromDefinitions(ctx, nil, []assets.Definition{
		assets.AndroidFileDefinition{PackageName: "a.b.c", Path: "/tmp/app.apk"},
		assets.UrlsDefinition{Links: []assets.Link{{URL: "https://example.com"}}},
		assets.NetworkDefinition{Ranges: []assets.IPRange{{Host: "10.0.0.0", Mask: "8"}}},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, assets.KindAndroidFile, created[0].Kind)
	assert.Equal(t, assets.KindUrls, created[1].Kind)
	assert.Equal(t, assets.KindNetwork, created[2].Kind)

	network, err := store.Assets().GetNetwork(ctx, created[2].ID)
	require.NoError(t, err)
	require.Len(t, network.Networks, 1)
	assert.Equal(t, "10.0.0.0", network.Networks[0].Host)
}

func TestAssetRepository_CreateFromDefinitionsIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missingScan := int64(404)

	_, err := store.Assets().CreateFromDefinitions(ctx, &missingScan, []assets.Definition{
		assets.IosFileDefinition{BundleID: "x.y.z", Path: "/tmp/app.ipa"},
	})
	assert.ErrorIs(t, err, storage.ErrForeignKeyViolation)
	assert.Zero(t, countRows(t, store, "asset"))
}
