package vulnerabilities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRiskRating is returned when a risk rating name is not recognized.
var ErrInvalidRiskRating = errors.New("invalid risk rating")

// RiskRating enum, declared from least to most severe.
type RiskRating string

const (
	RiskSecure      RiskRating = "SECURE"
	RiskInfo        RiskRating = "INFO"
	RiskHardening   RiskRating = "HARDENING"
	RiskImportant   RiskRating = "IMPORTANT"
	RiskPotentially RiskRating = "POTENTIALLY"
	RiskLow         RiskRating = "LOW"
	RiskMedium      RiskRating = "MEDIUM"
	RiskHigh        RiskRating = "HIGH"
	RiskCritical    RiskRating = "CRITICAL"
)

var ratings = []RiskRating{
	RiskSecure,
	RiskInfo,
	RiskHardening,
	RiskImportant,
	RiskPotentially,
	RiskLow,
	RiskMedium,
	RiskHigh,
	RiskCritical,
}

// RiskRatings returns every known rating, least severe first.
func RiskRatings() []RiskRating {
	out := make([]RiskRating, len(ratings))
	copy(out, ratings)
	return out
}

// ParseRiskRating resolves a rating name regardless of case.
func ParseRiskRating(s string) (RiskRating, error) {
	up := RiskRating(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range ratings {
		if r == up {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRiskRating, s)
}

// Rank is the position of r in the severity order, or -1 for an unknown rating.
func (r RiskRating) Rank() int {
	for i, known := range ratings {
		if known == r {
			return i
		}
	}
	return -1
}

// Less reports whether r is strictly less severe than other.
func (r RiskRating) Less(other RiskRating) bool {
	return r.Rank() < other.Rank()
}
