package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHostPort(t *testing.T) {
	for _, s := range []string{"0.0.0.0:25565", ":9464", "localhost:0", "[::1]:25565"} {
		assert.NoError(t, ValidHostPort(s), s)
	}
	for _, s := range []string{"", "localhost", "localhost:port", "localhost:65536", "localhost:-1"} {
		assert.Error(t, ValidHostPort(s), s)
	}
}

func TestValidPath(t *testing.T) {
	assert.NoError(t, ValidPath("/metrics"))
	assert.NoError(t, ValidPath("/a/b"))
	assert.Error(t, ValidPath(""))
	assert.Error(t, ValidPath("metrics"))
	assert.Error(t, ValidPath("/metrics?x=1"))
	assert.Error(t, ValidPath("/metrics#top"))
}
