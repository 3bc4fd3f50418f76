package authoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleFireIsIdempotent(t *testing.T) {
	l := NewLifecycle()
	assert.False(t, l.Fired(EventLoaded))

	l.Fire(EventLoaded)
	l.Fire(EventLoaded)
	l.Fire("unknown")

	assert.True(t, l.Fired(EventLoaded))
	assert.False(t, l.Fired(EventRendered))
	assert.False(t, l.Fired(EventError))

	select {
	case <-l.Done(EventLoaded):
	default:
		t.Fatal("loaded channel should be closed")
	}
	assert.Nil(t, l.Done(EventError))
}

func TestLifecycleAwaitLoaded(t *testing.T) {
	l := NewLifecycle()

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Fire(EventLoaded)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.AwaitLoaded(ctx))
	require.NoError(t, l.AwaitLoaded(ctx), "await after load returns immediately")
}

func TestLifecycleAwaitLoadedError(t *testing.T) {
	l := NewLifecycle()
	boom := errors.New("embed failed")
	l.Fail(boom)

	err := l.AwaitLoaded(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLifecycleAwaitLoadedContext(t *testing.T) {
	l := NewLifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.AwaitLoaded(ctx), context.Canceled)
}

func TestLifecycleFailDoesNotBlock(t *testing.T) {
	l := NewLifecycle()
	for i := 0; i < errorBuffer*2; i++ {
		l.Fail(errors.New("x"))
	}
	assert.Len(t, l.Errors(), errorBuffer)
}
