package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetLoadsOnceWithinTTL(t *testing.T) {
	c := New()
	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.Get("settings", time.Minute, loader)
		require.NoError(t, err)
		require.Equal(t, "value", v)
	}

	require.Equal(t, 1, loads)
}

func TestGetReloadsAfterExpiry(t *testing.T) {
	c := New()
	current := time.Now()
	c.now = func() time.Time { return current }

	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return loads, nil
	}

	_, err := c.Get("settings", 30*time.Second, loader)
	require.NoError(t, err)

	current = current.Add(31 * time.Second)

	v, err := c.Get("settings", 30*time.Second, loader)
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, loads)
}

func TestLoaderErrorsAreNotCached(t *testing.T) {
	c := New()
	loads := 0
	loader := func() (interface{}, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("db down")
		}
		return "ok", nil
	}

	_, err := c.Get("settings", time.Minute, loader)
	require.Error(t, err)

	v, err := c.Get("settings", time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestInvalidateForcesReload(t *testing.T) {
	c := New()
	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return loads, nil
	}

	_, err := c.Get("settings", time.Minute, loader)
	require.NoError(t, err)

	c.Invalidate("settings")

	_, err = c.Get("settings", time.Minute, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}
