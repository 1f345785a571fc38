package scans

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-store/internal/config"
	"github.com/bryanwahyu/automaton-store/internal/domain/agents"
	"github.com/bryanwahyu/automaton-store/internal/domain/assets"
	domain "github.com/bryanwahyu/automaton-store/internal/domain/scans"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
	"github.com/bryanwahyu/automaton-store/internal/domain/vulnerabilities"
	"github.com/bryanwahyu/automaton-store/internal/infra/db"
	"github.com/bryanwahyu/automaton-store/internal/logging"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var registeredAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := db.Open(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "db.sqlite"),
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, fixedClock{registeredAt}, logging.Discard())
}

func TestRegisterScan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterScan(ctx, RegisterScanCommand{
		Title:      "Example app",
		AssetLabel: "Android store",
		Group: &agents.GroupDefinition{
			Name:       "mobile",
			AssetTypes: []string{"android_store"},
			Agents:     []agents.AgentDefinition{{Key: "agent/ostorlab/apk_scanner"}},
		},
		Assets: []assets.Definition{assets.AndroidStoreDefinition{PackageName: "a.b.c", ApplicationName: "Example"}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ProgressNotStarted, res.Scan.Progress)
	assert.True(t, registeredAt.Equal(res.Scan.CreatedTime))
	require.NotNil(t, res.Group)
	require.Len(t, res.Assets, 1)

	stored, err := svc.Store.Scans().Get(ctx, res.Scan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AgentGroupID)
	assert.Equal(t, res.Group.ID, *stored.AgentGroupID)
	require.NotNil(t, stored.Asset)
	assert.Equal(t, "Android store", *stored.Asset)

	byScan, err := svc.Store.Assets().ListByScan(ctx, res.Scan.ID)
	require.NoError(t, err)
	assert.Len(t, byScan, 1)

	groups, err := svc.Store.AgentGroups().GetByAssetType(ctx, "android_store")
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestRegisterScan_withoutGroup(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.RegisterScan(context.Background(), RegisterScanCommand{Title: "bare"})
	require.NoError(t, err)
	assert.Nil(t, res.Group)
	assert.Nil(t, res.Scan.AgentGroupID)
	assert.Empty(t, res.Assets)
}

func TestRegisterScan_requiresTitle(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RegisterScan(context.Background(), RegisterScanCommand{Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestRegisterScan_rollsBackOnFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Store.Agents().Create(ctx, "agent/ostorlab/nmap")
	require.NoError(t, err)

	// a nil definition fails after the scan and the group were written
	_, err = svc.RegisterScan(ctx, RegisterScanCommand{
		Title:  "broken",
		Group:  &agents.GroupDefinition{Name: "g", Agents: []agents.AgentDefinition{{Key: "agent/ostorlab/nmap"}}},
		Assets: []assets.Definition{nil},
	})
	require.Error(t, err)

	n, err := svc.Store.Scans().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	groups, err := svc.Store.AgentGroups().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMarkProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterScan(ctx, RegisterScanCommand{Title: "scan"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkProgress(ctx, res.Scan.ID, "in_progress"))
	got, err := svc.Store.Scans().Get(ctx, res.Scan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressInProgress, got.Progress)

	assert.ErrorIs(t, svc.MarkProgress(ctx, res.Scan.ID, "paused"), ErrInvalidCommand)
	assert.ErrorIs(t, svc.MarkProgress(ctx, 404, "DONE"), storage.ErrNotFound)
}

func TestSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterScan(ctx, RegisterScanCommand{Title: "scan"})
	require.NoError(t, err)
	id := res.Scan.ID

	_, err = svc.RecordStatus(ctx, id, "progress", "queued")
	require.NoError(t, err)
	_, err = svc.RecordStatus(ctx, id, "progress", "running")
	require.NoError(t, err)
	_, err = svc.RecordStatus(ctx, id, "", "ignored")
	assert.ErrorIs(t, err, ErrInvalidCommand)

	for _, risk := range []string{"LOW", "CRITICAL", "low"} {
		_, err := svc.RecordVulnerability(ctx, vulnerabilities.NewVulnerability{
			Title:      "finding",
			RiskRating: risk,
			Location:   vulnerabilities.Location{"ip": map[string]any{"host": "10.0.0.1"}},
			ScanID:     id,
		})
		require.NoError(t, err)
	}

	sum, err := svc.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sum.Scan.ID)
	require.NotNil(t, sum.LatestStatus)
	assert.Equal(t, "running", sum.LatestStatus.Value)
	assert.Equal(t, 3, sum.Vulnerabilities)
	assert.Equal(t, 2, sum.Risks[vulnerabilities.RiskLow])
	assert.Equal(t, vulnerabilities.RiskCritical, sum.HighestRisk)

	_, err = svc.Summary(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
