package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/anonymort/whistle/internal/http"
)

// fakeServer blocks in Start until Shutdown is called, like http.Server.ListenAndServe.
type fakeServer struct {
	startErr error
	stopped  chan struct{}
	once     sync.Once

	mu            sync.Mutex
	shutdownCalls int
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, stopped: make(chan struct{})}
}

func (f *fakeServer) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return nil
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdownCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeServer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCalls
}

func TestListeners(t *testing.T) {
	api := newFakeServer(nil)

	t.Run("metrics disabled", func(t *testing.T) {
		servers := listeners(api, nil)
		require.Len(t, servers, 1)
		assert.Equal(t, "api server", servers[0].name)
	})

	t.Run("metrics enabled", func(t *testing.T) {
		metricsServer := http.NewMetricsServer("localhost", 0, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
		servers := listeners(api, metricsServer)
		require.Len(t, servers, 2)
		assert.Equal(t, "metrics server", servers[1].name)
		assert.NotNil(t, servers[1].server)
	})
}

func TestServe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("context-cancel-shuts-everything-down", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		api := newFakeServer(nil)
		metrics := newFakeServer(nil)
		taskStopped := make(chan struct{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- serve(ctx, logger, time.Second,
				[]namedServer{{name: "api server", server: api}, {name: "metrics server", server: metrics}},
				[]func(ctx context.Context) error{
					func(ctx context.Context) error {
						<-ctx.Done()
						close(taskStopped)
						return nil
					},
				},
			)
		}()

		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("serve did not return")
		}
		assert.Equal(t, 1, api.calls())
		assert.Equal(t, 1, metrics.calls())
		<-taskStopped
	})

	t.Run("failing-server-stops-the-others", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		broken := newFakeServer(errors.New("address already in use"))
		healthy := newFakeServer(nil)

		err := serve(context.Background(), logger, time.Second,
			[]namedServer{{name: "api server", server: broken}, {name: "metrics server", server: healthy}},
			nil,
		)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "api server error: address already in use")
		assert.Equal(t, 1, healthy.calls())
	})

	t.Run("failing-task-stops-servers", func(t *testing.T) {
		api := newFakeServer(nil)

		err := serve(context.Background(), logger, time.Second,
			[]namedServer{{name: "api server", server: api}},
			[]func(ctx context.Context) error{
				func(ctx context.Context) error { return errors.New("scheduler failed") },
			},
		)

		require.EqualError(t, err, "scheduler failed")
		assert.Equal(t, 1, api.calls())
	})
}
