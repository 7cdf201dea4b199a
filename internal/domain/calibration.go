package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome pairs a claim's stated confidence with what actually happened.
type Outcome struct {
	ClaimID    uuid.UUID `json:"claim_id"`
	Producer   string    `json:"producer"`
	Predicted  float64   `json:"predicted"`
	Actual     bool      `json:"actual"`
	VerifiedAt time.Time `json:"verified_at"`
}

// CalibrationBucket aggregates outcomes whose predicted confidence falls
// in [Low, High). The last bucket is closed on the right.
type CalibrationBucket struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
	// Wilson score interval on the observed rate at 95% confidence.
	WilsonLow  float64 `json:"wilson_low"`
	WilsonHigh float64 `json:"wilson_high"`
}

type SufficiencyVerdict string

const (
	SufficiencySufficient   SufficiencyVerdict = "sufficient"
	SufficiencyInsufficient SufficiencyVerdict = "insufficient_data"
)

// CalibrationReport summarizes a producer's calibration over verified
// outcomes. ECE is the expected calibration error: the count-weighted mean
// of |observed - predicted| across non-empty buckets.
type CalibrationReport struct {
	Producer    string              `json:"producer"`
	Outcomes    int                 `json:"outcomes"`
	Buckets     []CalibrationBucket `json:"buckets"`
	ECE         float64             `json:"ece"`
	Brier       float64             `json:"brier"`
	Sufficiency SufficiencyVerdict  `json:"sufficiency"`
	// MinSamples is the PAC bound: outcomes required before ECE is
	// trustworthy at the configured epsilon and delta.
	MinSamples  int       `json:"min_samples"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Calibrated reports whether the producer's ECE clears the threshold on a
// sufficient sample. An insufficient sample never counts as calibrated.
func (r *CalibrationReport) Calibrated(threshold float64) bool {
	return r.Sufficiency == SufficiencySufficient && r.ECE <= threshold
}
