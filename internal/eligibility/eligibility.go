// Package eligibility decides whether a donor may donate now.
//
// The rule is a pure function of the donor's last completed donation date and
// the current date, so it is callable independently of any lifecycle
// transition and testable without mutating state. The appointment service
// uses it as a pre-check; callers decide whether an ineligible result blocks
// the action or is advisory.
package eligibility

import (
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// MinIntervalDays is the minimum number of days required between a donor's
// completed donations.
const MinIntervalDays = 112

// Result is the outcome of an eligibility evaluation.
type Result struct {
	Eligible bool `json:"eligible"`
	// NextEligibleOn is the first date the donor may donate again. Zero when
	// the donor is already eligible.
	NextEligibleOn time.Time `json:"next_eligible_on,omitzero"`
}

// Evaluate computes eligibility from the donor's last donation date.
// A nil lastDonation means the donor has never donated and is eligible.
// Comparison is date-based: hours within the day do not affect the outcome.
func Evaluate(lastDonation *time.Time, now time.Time) Result {
	if lastDonation == nil {
		return Result{Eligible: true}
	}
	next := toDate(*lastDonation).AddDate(0, 0, MinIntervalDays)
	if !toDate(now).Before(next) {
		return Result{Eligible: true}
	}
	return Result{Eligible: false, NextEligibleOn: next}
}

// Check returns a CodeDonorIneligible error carrying the unlock date when the
// donor is inside the deferral window, nil otherwise.
func Check(lastDonation *time.Time, now time.Time) error {
	res := Evaluate(lastDonation, now)
	if res.Eligible {
		return nil
	}
	return dErrors.Newf(dErrors.CodeDonorIneligible,
		"donor is ineligible until %s", res.NextEligibleOn.Format("2006-01-02"))
}

func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
