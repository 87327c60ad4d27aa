package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel2_BothSucceed(t *testing.T) {
	n, s, err := Parallel2(context.Background(),
		func(context.Context) (int, error) { return 42, nil },
		func(context.Context) (string, error) { return "ok", nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, "ok", s)
}

func TestParallel2_FirstErrorCancelsOther(t *testing.T) {
	boom := errors.New("boom")

	n, s, err := Parallel2(context.Background(),
		func(context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Empty(t, s)
}
