package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cvlab/internal/logger"
)

// Manager turns SIGINT/SIGTERM into context cancellation. The pipeline checks
// the context between images and stages, so an interrupted run stops at the
// next boundary with the files written so far.
type Manager struct {
	logger logger.Logger
	once   sync.Once
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger: logger.OrNop(log),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		stop:   func() {},
	}
}

func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	m.stop = func() { signal.Stop(sigChan) }

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Warning("Shutdown", "signal received, stopping after current image", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown cancels the context. Safe to call more than once.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.done)
		m.cancel()
		m.stop()
	})
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
