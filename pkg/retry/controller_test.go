package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfollowers/pkg/models"
)

func TestControllerOKContinuesAndResets(t *testing.T) {
	c := NewController(DefaultPolicy(), fixedRand(0.5))

	d := c.Decide(models.OutcomeOK, 2)
	assert.Equal(t, ActionContinue, d.Action)
	assert.Equal(t, 0, d.ErrorCount)
	assert.Equal(t, 2*time.Second, d.Wait)
	assert.Empty(t, d.Reason)
}

func TestControllerOKJitterBounds(t *testing.T) {
	p := DefaultPolicy()

	low := NewController(p, fixedRand(0)).Decide(models.OutcomeOK, 0)
	high := NewController(p, fixedRand(0.999999)).Decide(models.OutcomeOK, 0)

	assert.Equal(t, 1500*time.Millisecond, low.Wait)
	assert.InDelta(t, float64(2500*time.Millisecond), float64(high.Wait), float64(time.Millisecond))

	for i := 0; i < 100; i++ {
		w := NewController(p, nil).Decide(models.OutcomeOK, 0).Wait
		require.GreaterOrEqual(t, w, 1500*time.Millisecond)
		require.LessOrEqual(t, w, 2500*time.Millisecond)
	}
}

func TestControllerRateLimitSchedule(t *testing.T) {
	c := NewController(DefaultPolicy(), nil)

	first := c.Decide(models.OutcomeRateLimited, 0)
	assert.Equal(t, ActionRetry, first.Action)
	assert.Equal(t, 20*time.Second, first.Wait)
	assert.Equal(t, 1, first.ErrorCount)

	second := c.Decide(models.OutcomeRateLimited, first.ErrorCount)
	assert.Equal(t, ActionRetry, second.Action)
	assert.Equal(t, 35*time.Second, second.Wait)
	assert.Equal(t, 2, second.ErrorCount)
}

func TestControllerRateLimitCapAndCeiling(t *testing.T) {
	p := DefaultPolicy()
	p.RateLimitCeiling = 30
	c := NewController(p, nil)

	d := c.Decide(models.OutcomeRateLimited, 25)
	assert.Equal(t, ActionRetry, d.Action)
	assert.Equal(t, 5*time.Minute, d.Wait)

	c = NewController(DefaultPolicy(), nil)
	count := 0
	for i := 0; i < 8; i++ {
		d := c.Decide(models.OutcomeRateLimited, count)
		require.Equal(t, ActionRetry, d.Action, "attempt %d", i+1)
		count = d.ErrorCount
	}
	d = c.Decide(models.OutcomeRateLimited, count)
	assert.Equal(t, ActionAbort, d.Action)
	assert.Contains(t, d.Reason, "rate limited 9 times")
}

func TestControllerTransientCeiling(t *testing.T) {
	c := NewController(DefaultPolicy(), fixedRand(0))

	d1 := c.Decide(models.OutcomeTransient, 0)
	assert.Equal(t, ActionRetry, d1.Action)
	assert.Equal(t, 5*time.Second, d1.Wait)

	d2 := c.Decide(models.OutcomeTransient, d1.ErrorCount)
	assert.Equal(t, ActionRetry, d2.Action)
	assert.Equal(t, 2, d2.ErrorCount)

	d3 := c.Decide(models.OutcomeTransient, d2.ErrorCount)
	assert.Equal(t, ActionAbort, d3.Action)
	assert.Equal(t, 3, d3.ErrorCount)
	assert.Contains(t, d3.Reason, "3 consecutive transient errors")
}

func TestControllerTransientWindow(t *testing.T) {
	c := NewController(DefaultPolicy(), nil)
	for i := 0; i < 100; i++ {
		w := c.Decide(models.OutcomeTransient, 0).Wait
		require.GreaterOrEqual(t, w, 5*time.Second)
		require.LessOrEqual(t, w, 10*time.Second)
	}
}

func TestControllerTwoTransientsThenOK(t *testing.T) {
	c := NewController(DefaultPolicy(), nil)

	count := c.Decide(models.OutcomeTransient, 0).ErrorCount
	count = c.Decide(models.OutcomeTransient, count).ErrorCount
	require.Equal(t, 2, count)

	ok := c.Decide(models.OutcomeOK, count)
	assert.Equal(t, 0, ok.ErrorCount)

	// a fresh streak gets the full allowance again
	next := c.Decide(models.OutcomeTransient, ok.ErrorCount)
	assert.Equal(t, ActionRetry, next.Action)
}

func TestControllerAuthAborts(t *testing.T) {
	c := NewController(DefaultPolicy(), nil)

	for _, n := range []int{0, 1, 7} {
		d := c.Decide(models.OutcomeAuthFailed, n)
		assert.Equal(t, ActionAbort, d.Action)
		assert.True(t, d.CredentialInvalid)
		assert.Contains(t, d.Reason, "must be replaced")
		assert.Zero(t, d.Wait)
	}
}

func TestControllerFatalAborts(t *testing.T) {
	d := NewController(DefaultPolicy(), nil).Decide(models.OutcomeFatal, 0)
	assert.Equal(t, ActionAbort, d.Action)
	assert.False(t, d.CredentialInvalid)
	assert.NotEmpty(t, d.Reason)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.Jitter = 1
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.ErrorCeiling = 0
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.TransientMin = time.Minute
	assert.Error(t, bad.Validate())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "continue", ActionContinue.String())
	assert.Equal(t, "retry", ActionRetry.String())
	assert.Equal(t, "abort", ActionAbort.String())
	assert.Equal(t, "unknown", Action(42).String())
}
