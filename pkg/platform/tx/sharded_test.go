package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lifeline/pkg/domain-errors"
)

func TestShardedRunInTx(t *testing.T) {
	t.Run("runs the function and returns its error", func(t *testing.T) {
		runner := NewSharded(0)
		sentinel := errors.New("boom")

		ran := false
		err := runner.RunInTx(context.Background(), "event:1", func(ctx context.Context) error {
			ran = true
			return sentinel
		})
		assert.True(t, ran)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("same key contention times out with conflict", func(t *testing.T) {
		runner := NewSharded(50 * time.Millisecond)

		acquired := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = runner.RunInTx(context.Background(), "event:1", func(ctx context.Context) error {
				close(acquired)
				<-release
				return nil
			})
		}()
		<-acquired
		defer close(release)

		err := runner.RunInTx(context.Background(), "event:1", func(ctx context.Context) error {
			return nil
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("different keys do not contend", func(t *testing.T) {
		runner := NewSharded(50 * time.Millisecond)

		acquired := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = runner.RunInTx(context.Background(), "event:1", func(ctx context.Context) error {
				close(acquired)
				<-release
				return nil
			})
		}()
		<-acquired
		defer close(release)

		err := runner.RunInTx(context.Background(), "appointment:9", func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("cancelled context aborts before running", func(t *testing.T) {
		runner := NewSharded(0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runner.RunInTx(ctx, "event:1", func(ctx context.Context) error {
			t.Fatal("fn should not run")
			return nil
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	t.Run("lock is released after the function returns", func(t *testing.T) {
		runner := NewSharded(0)
		for range 3 {
			err := runner.RunInTx(context.Background(), "unit:7", func(ctx context.Context) error {
				return nil
			})
			require.NoError(t, err)
		}
	})
}
