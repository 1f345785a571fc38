package vulnerabilities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRiskRating(t *testing.T) {
	r, err := ParseRiskRating("critical")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, r)

	_, err = ParseRiskRating("SEVERE")
	assert.True(t, errors.Is(err, ErrInvalidRiskRating))
}

func TestRiskRatingOrder(t *testing.T) {
	assert.True(t, RiskInfo.Less(RiskLow))
	assert.True(t, RiskLow.Less(RiskMedium))
	assert.True(t, RiskMedium.Less(RiskHigh))
	assert.True(t, RiskHigh.Less(RiskCritical))
	assert.False(t, RiskCritical.Less(RiskHigh))
	assert.Equal(t, -1, RiskRating("nope").Rank())
	assert.Len(t, RiskRatings(), 9)
}
