package qr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventless/internal/tickets/qr"
)

func TestPNG(t *testing.T) {
	png, err := qr.PNG("evl:tix:550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	assert.Greater(t, len(png), 100)
}

func TestPNGDeterministic(t *testing.T) {
	first, err := qr.PNG("evl:tix:abc")
	require.NoError(t, err)
	second, err := qr.PNG("evl:tix:abc")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same code renders the same image")
}
