package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{Width: 800, Height: 480, Timeout: time.Second}.withDefaults()
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 480, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestTarget(t *testing.T) {
	_, err := Options{}.target()
	assert.ErrorIs(t, err, ErrNoURL)

	u, err := Options{URL: "http://127.0.0.1:8080/calendar"}.target()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/calendar", u)

	u, err = Options{URL: "http://127.0.0.1:8080/calendar?date=2020-01-01", Date: "2026-03-02"}.target()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/calendar?date=2026-03-02", u)
}

func TestAuthHeader(t *testing.T) {
	assert.Nil(t, Options{}.authHeader())
	h := Options{Username: "alice", Password: "secret"}.authHeader()
	assert.Equal(t, "Basic YWxpY2U6c2VjcmV0", h["Authorization"])
}

func TestWriteSnapshotValidates(t *testing.T) {
	err := WriteSnapshot(context.Background(), Options{URL: "http://x"})
	assert.ErrorIs(t, err, ErrNoOutput)

	_, err = Snapshot(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoURL)
}
