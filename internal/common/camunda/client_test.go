package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "property-search/internal/common/errors"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("rpc error: code = Unavailable")
		}
		return "ok", nil
	}, "publish")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_DoesNotRetryPermanentError(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("process definition not found")
	}, "create-instance")

	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExecuteWithRetry_GivesUpAsExternalError(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("connection refused")
	}, "topology")

	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.IsExternal(err))
}
