package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx_PushLevelRestoresOnReturn(t *testing.T) {
	ctx := NewCtx(nil, nil, nil)
	assert.Equal(t, 0, ctx.NestingLevel())

	err := ctx.PushLevel(&Level{}, func() error {
		assert.Equal(t, 1, ctx.NestingLevel())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ctx.NestingLevel())
}

func TestCtx_PushLevelRestoresOnError(t *testing.T) {
	ctx := NewCtx(nil, nil, nil)
	boom := errors.New("boom")

	err := ctx.PushLevel(&Level{}, func() error { return boom })
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, ctx.NestingLevel())
}

func TestCtx_LevelsAreIsolated(t *testing.T) {
	ctx := NewCtx(nil, nil, nil)
	outer := ctx.Level()

	_ = ctx.PushLevel(&Level{}, func() error {
		inner := ctx.Level()
		assert.NotSame(t, outer, inner)
		return nil
	})

	assert.Same(t, outer, ctx.Level())
}
