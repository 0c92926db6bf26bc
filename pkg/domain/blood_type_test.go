package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lifeline/pkg/domain-errors"
)

func TestParseBloodType(t *testing.T) {
	t.Run("accepts all eight groups", func(t *testing.T) {
		for _, raw := range []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"} {
			bt, err := ParseBloodType(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, bt.String())
			assert.True(t, bt.IsValid())
		}
	})

	t.Run("rejects unsupported input", func(t *testing.T) {
		for _, raw := range []string{"", "C+", "a+", "O", "AB"} {
			_, err := ParseBloodType(raw)
			require.Error(t, err, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
