package interrupt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminationContext_Stop(t *testing.T) {
	ctx, stop := TerminationContext(context.Background())
	stop()
	<-ctx.Done()
	_, ok := Signal(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestTerminationContext_Parent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := TerminationContext(parent)
	defer stop()
	cancel()
	<-ctx.Done()
	_, ok := Signal(ctx)
	assert.False(t, ok)
}
