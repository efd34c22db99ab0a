package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-lynx/lynx-di/plugins"
)

// DefaultLifecycleTimeout bounds a single plugin Start or Stop.
const DefaultLifecycleTimeout = 5 * time.Second

// WithStartTimeout bounds each plugin Start. A non-positive timeout only cancels
// with the caller's context.
// WithStartTimeout 设置单个插件启动的超时时间。
func WithStartTimeout(d time.Duration) Option {
	return func(m *PluginManager) { m.startTimeout = d }
}

// WithStopTimeout bounds each plugin Stop.
// WithStopTimeout 设置单个插件停止的超时时间。
func WithStopTimeout(d time.Duration) Option {
	return func(m *PluginManager) { m.stopTimeout = d }
}

func (m *PluginManager) safeStartPlugin(ctx context.Context, p plugins.Plugin) error {
	return safeCall(ctx, m.startTimeout, p.ID(), "Start", p.Start)
}

func (m *PluginManager) safeStopPlugin(ctx context.Context, p plugins.Plugin) error {
	return safeCall(ctx, m.stopTimeout, p.ID(), "Stop", p.Stop)
}

// safeCall runs fn in its own goroutine, turning a panic into an error and giving
// up once the deadline passes. fn keeps running after a timeout; it is expected to
// honour the cancelled context.
func safeCall(ctx context.Context, timeout time.Duration, id, op string, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s of plugin %s cancelled before execution: %w", op, id, err)
	}

	// buffered so the goroutine never blocks after a timeout
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in %s of plugin %s: %v", op, id, r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s of plugin %s timed out: %w", op, id, ctx.Err())
	}
}
