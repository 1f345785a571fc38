package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-store/internal/domain/scans"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
	"github.com/bryanwahyu/automaton-store/internal/domain/vulnerabilities"
)

func newVulnerability(scanID int64, risk string) vulnerabilities.NewVulnerability {
	return vulnerabilities.NewVulnerability{
		Title:            "Exported activity",
		ShortDescription: "short",
		Description:      "description",
		Recommendation:   "fix it",
		TechnicalDetail:  "details",
		RiskRating:       risk,
		CVSSV3Vector:     "CVSS:3.1/AV:N",
		DNA:              "dna",
		ScanID:           scanID,
	}
}

func TestVulnerabilityRepository_CreateRendersLocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s, err := store.Scans().Create(ctx, scans.NewScan{Title: "test"})
	require.NoError(t, err)

	nv := newVulnerability(s.ID, "high")
	nv.Location = vulnerabilities.Location{
		"link": map[string]any{"url": "http://test.com"},
		"metadata": []any{
			map[string]any{"type": "CODE_LOCATION", "value": "some/file.swift:42"},
		},
	}
	nv.References = []vulnerabilities.Reference{{Title: "CWE-926", URL: "https://cwe.mitre.org/data/definitions/926.html"}}

	v, err := store.Vulnerabilities().Create(ctx, nv)
	require.NoError(t, err)
	assert.Equal(t, vulnerabilities.RiskHigh, v.RiskRating)

	want := "Asset: `{\n" +
		"    \"link\": {\n" +
		"        \"url\": \"http://test.com\"\n" +
		"    },\n" +
		"    \"metadata\": [\n" +
		"        {\n" +
		"            \"type\": \"CODE_LOCATION\",\n" +
		"            \"value\": \"some/file.swift:42\"\n" +
		"        }\n" +
		"    ]\n" +
		"}`\n" +
		"CODE_LOCATION: some/file.swift:42  \n"

	got, err := store.Vulnerabilities().Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.Location)
	assert.Equal(t, v, got)

	refs, err := store.Vulnerabilities().References(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "CWE-926", refs[0].Title)
	assert.Equal(t, v.ID, refs[0].VulnerabilityID)
}

func TestVulnerabilityRepository_InvalidRiskRating(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s, err := store.Scans().Create(ctx, scans.NewScan{Title: "test"})
	require.NoError(t, err)

	_, err = store.Vulnerabilities().Create(ctx, newVulnerability(s.ID, "SEVERE"))
	assert.ErrorIs(t, err, vulnerabilities.ErrInvalidRiskRating)
	assert.Zero(t, countRows(t, store, "vulnerability"))
}

func TestVulnerabilityRepository_UnknownScan(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Vulnerabilities().Create(context.Background(), newVulnerability(404, "LOW"))
	assert.ErrorIs(t, err, storage.ErrForeignKeyViolation)
}

func TestVulnerabilityRepository_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s, err := store.Scans().Create(ctx, scans.NewScan{Title: "test"})
	require.NoError(t, err)
	other, err := store.Scans().Create(ctx, scans.NewScan{Title: "other"})
	require.NoError(t, err)

	for _, risk := range []string{"HIGH", "LOW", "high", "INFO"} {
		_, err := store.Vulnerabilities().Create(ctx, newVulnerability(s.ID, risk))
		require.NoError(t, err)
	}
	_, err = store.Vulnerabilities().Create(ctx, newVulnerability(other.ID, "CRITICAL"))
	require.NoError(t, err)

	list, err := store.Vulnerabilities().ListByScan(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, vulnerabilities.RiskHigh, list[0].RiskRating)
	assert.Equal(t, vulnerabilities.RiskInfo, list[3].RiskRating)

	counts, err := store.Vulnerabilities().CountByRisk(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, map[vulnerabilities.RiskRating]int{
		vulnerabilities.RiskHigh: 2,
		vulnerabilities.RiskLow:  1,
		vulnerabilities.RiskInfo: 1,
	}, counts)

	_, err = store.Vulnerabilities().Get(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
