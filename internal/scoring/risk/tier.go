// Package risk maps a creditworthiness probability to a risk tier.
package risk

// Tier is a discrete risk bucket.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierMedium   Tier = "MEDIUM"
	TierHigh     Tier = "HIGH"
	TierVeryHigh Tier = "VERY_HIGH"
)

// CreditworthyThreshold is the probability at and above which an applicant is creditworthy.
const CreditworthyThreshold = 0.5

// thresholds are inclusive lower bounds, highest first.
var thresholds = []struct {
	atLeast float64
	tier    Tier
}{
	{0.75, TierLow},
	{0.5, TierMedium},
	{0.25, TierHigh},
}

// Classify is total: every input, NaN included, maps to exactly one tier.
func Classify(probability float64) Tier {
	for _, t := range thresholds {
		if probability >= t.atLeast {
			return t.tier
		}
	}
	return TierVeryHigh
}

// Creditworthy applies the fixed decision threshold.
func Creditworthy(probability float64) bool {
	return probability >= CreditworthyThreshold
}
