package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lifeline/pkg/domain-errors"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastDonation *time.Time
		wantEligible bool
		wantNext     time.Time
	}{
		{
			name:         "never donated",
			lastDonation: nil,
			wantEligible: true,
		},
		{
			name:         "donated yesterday",
			lastDonation: timePtr(now.AddDate(0, 0, -1)),
			wantEligible: false,
			wantNext:     time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC).AddDate(0, 0, MinIntervalDays),
		},
		{
			name:         "donated 100 days ago unlocks in 12 days",
			lastDonation: timePtr(now.AddDate(0, 0, -100)),
			wantEligible: false,
			wantNext:     time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC).AddDate(0, 0, MinIntervalDays),
		},
		{
			name:         "donated exactly 112 days ago",
			lastDonation: timePtr(now.AddDate(0, 0, -MinIntervalDays)),
			wantEligible: true,
		},
		{
			name:         "donated 111 days ago",
			lastDonation: timePtr(now.AddDate(0, 0, -(MinIntervalDays - 1))),
			wantEligible: false,
			wantNext:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1),
		},
		{
			name:         "donated long ago",
			lastDonation: timePtr(now.AddDate(-1, 0, 0)),
			wantEligible: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(tc.lastDonation, now)
			assert.Equal(t, tc.wantEligible, res.Eligible)
			if !tc.wantEligible {
				assert.Equal(t, tc.wantNext, res.NextEligibleOn)
			} else {
				assert.True(t, res.NextEligibleOn.IsZero())
			}
		})
	}
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	// A donation late on day zero and a check early on day 112 still count as
	// 112 full days apart.
	last := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC).AddDate(0, 0, MinIntervalDays)

	res := Evaluate(&last, now)
	assert.True(t, res.Eligible)
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("eligible donor passes", func(t *testing.T) {
		require.NoError(t, Check(nil, now))
	})

	t.Run("deferred donor gets coded error with unlock date", func(t *testing.T) {
		last := now.AddDate(0, 0, -10)
		err := Check(&last, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDonorIneligible))
		assert.Contains(t, err.Error(), Evaluate(&last, now).NextEligibleOn.Format("2006-01-02"))
	})
}

func timePtr(t time.Time) *time.Time { return &t }
