package logr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New(false, 0)
	require.NoError(t, err)
	assert.True(t, log.Enabled())
	assert.False(t, log.V(1).Enabled())

	log, err = New(true, 2)
	require.NoError(t, err)
	assert.True(t, log.V(1).Enabled())
	assert.True(t, log.V(2).Enabled())
	assert.False(t, log.V(3).Enabled())
}
