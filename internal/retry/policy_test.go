package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, BackoffLinear, p.Mode)
	require.Equal(t, time.Second, p.Initial)
	require.Equal(t, 30*time.Second, p.Max)
	require.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
	require.Equal(t, 0, NoRetry().MaxRetries)
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	require.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	require.Equal(t, 2*time.Second, p.Max)
	require.Equal(t, BackoffFixed, p.Mode)
	require.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	require.Equal(t, DefaultPolicy(), p)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(BackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	for i := 1; i <= 3; i++ {
		require.Equal(t, 100*time.Millisecond, fixed.Delay(i))
	}

	linear := NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	require.Equal(t, 100*time.Millisecond, linear.Delay(1))
	require.Equal(t, 200*time.Millisecond, linear.Delay(2))
	require.Equal(t, 250*time.Millisecond, linear.Delay(3))

	exp := NewPolicy(BackoffExponential, 100*time.Millisecond, time.Second, 5)
	require.Equal(t, 100*time.Millisecond, exp.Delay(1))
	require.Equal(t, 400*time.Millisecond, exp.Delay(3))
	require.Equal(t, time.Second, exp.Delay(5))
	require.Equal(t, time.Second, exp.Delay(64))

	require.Zero(t, linear.Delay(0))
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Mode: BackoffFixed, Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Mode: BackoffFixed, Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Mode: BackoffFixed, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())

	err := Policy{Mode: "exponentail", Initial: time.Second, Max: time.Second}.Validate()
	require.ErrorContains(t, err, `backoff "exponentail"`)
	require.True(t, BackoffLinear.IsValid())
	require.False(t, Backoff("").IsValid())
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return derrors.NetworkError("connection reset").Build()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 3)

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return derrors.SpecError("bad document").Build()
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)

	calls = 0
	err = Do(context.Background(), p, func(context.Context) error {
		calls++
		return errors.New("plain")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return derrors.NetworkError("timeout").Build()
	})
	require.True(t, derrors.HasCategory(err, derrors.CategoryNetwork))
	require.Equal(t, 3, calls)
}

func TestDo_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, NewPolicy(BackoffFixed, time.Hour, time.Hour, 5), func(context.Context) error {
		calls++
		return derrors.NetworkError("timeout").Build()
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
