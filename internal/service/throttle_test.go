package service

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestThrottle_PerAddressBudget(t *testing.T) {
	req := require.New(t)
	clock := clockwork.NewFakeClock()
	th, err := NewThrottle(1, 2, 16, clock)
	req.NoError(err)

	req.True(th.Allow("10.0.0.1"))
	req.True(th.Allow("10.0.0.1"))
	req.False(th.Allow("10.0.0.1"), "burst exhausted")
	req.True(th.Allow("10.0.0.2"), "other addresses keep their own budget")

	clock.Advance(time.Second)
	req.True(th.Allow("10.0.0.1"), "token refilled")
	req.False(th.Allow("10.0.0.1"))
	req.Equal(2, th.Tracked())
}

func TestThrottle_BoundedCache(t *testing.T) {
	req := require.New(t)
	th, err := NewThrottle(1, 1, 2, clockwork.NewFakeClock())
	req.NoError(err)

	th.Allow("a")
	th.Allow("b")
	th.Allow("c")
	req.Equal(2, th.Tracked())
}

func TestThrottle_Disabled(t *testing.T) {
	th, err := NewThrottle(0, 1, 0, nil)
	require.NoError(t, err)
	for range 100 {
		require.True(t, th.Allow("10.0.0.1"))
	}

	var none *Throttle
	require.True(t, none.Allow("10.0.0.1"))
}
