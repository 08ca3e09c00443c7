package observability

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager(t *testing.T) {
	sm := NewShutdownManager(nil, 0)
	require.NotNil(t, sm)
	assert.Equal(t, 10*time.Second, sm.shutdownTimeout)
	assert.NotNil(t, sm.logger)

	sm = NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second)
	assert.Equal(t, time.Second, sm.shutdownTimeout)
}

func TestShutdownManager_RunsAllFuncsOnce(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second)

	var calls int32
	for i := 0; i < 3; i++ {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), time.Second)
	closeErr := errors.New("ledger close failed")

	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return closeErr })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.True(t, errors.Is(err, closeErr))
	assert.Contains(t, err.Error(), "shutdown completed with 1 errors")
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger("error", &bytes.Buffer{}), 20*time.Millisecond)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		<-release
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown timeout reached")
}

func TestSignalContext_CancelledByParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := SignalContext(parent, nil)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled with its parent")
	}
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("error", &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "watch loop")
		panic("boom")
	})
	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "context=\"watch loop\"")
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))

	err := func() (err error) {
		defer func() {
			if perr := MustRecover(recover()); perr != nil {
				err = perr
			}
		}()
		panic("bad manifest")
	}()
	require.Error(t, err)
	assert.Equal(t, "panic: bad manifest", err.Error())
}
