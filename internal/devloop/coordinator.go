// Package devloop sequences one rebuild: mark the state as building, run the
// build, commit the outcome and only then tell browsers to reload.
package devloop

import (
	"context"
	"sync"

	"github.com/conneroisu/shtml/internal/build"
	"github.com/conneroisu/shtml/internal/logging"
	"github.com/conneroisu/shtml/internal/reload"
	"github.com/conneroisu/shtml/internal/state"
)

// Builder runs one build attempt.
type Builder interface {
	Run(ctx context.Context) build.Outcome
}

// Broadcaster notifies live-reload subscribers.
type Broadcaster interface {
	Broadcast(msg string) int
}

// Coordinator owns the build sequence.
type Coordinator struct {
	mu      sync.Mutex
	store   *state.Store
	builder Builder
	hub     Broadcaster
	logger  logging.Logger
}

// NewCoordinator wires the store, builder and hub together.
func NewCoordinator(store *state.Store, builder Builder, hub Broadcaster, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{
		store:   store,
		builder: builder,
		hub:     hub,
		logger:  logger.WithComponent("devloop"),
	}
}

// Rebuild runs one full build. Concurrent callers are serialized. The
// reload broadcast happens after the terminal state is committed, for both
// outcomes.
func (c *Coordinator) Rebuild(ctx context.Context, changed string) build.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.BeginBuild(changed); err != nil {
		// only reachable if something outside the coordinator set Building
		c.logger.Error(ctx, err, "Cannot start build")
		return build.Outcome{Message: err.Error()}
	}

	outcome := c.builder.Run(ctx)

	if err := c.store.Finish(outcome.State()); err != nil {
		c.logger.Error(ctx, err, "Cannot commit build outcome")
	}

	delivered := c.hub.Broadcast(reload.MessageReload)
	c.logger.Debug(ctx, "Reload broadcast", "subscribers", delivered, "success", outcome.Success)

	return outcome
}

// Exclusive runs fn while no build is in flight. Work that writes into the
// output directory outside the dev loop goes through here.
func (c *Coordinator) Exclusive(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// BuildFunc adapts Rebuild to the detector's callback.
func (c *Coordinator) BuildFunc() func(ctx context.Context, changed string) {
	return func(ctx context.Context, changed string) {
		c.Rebuild(ctx, changed)
	}
}

// InitialBuild runs the startup build.
func (c *Coordinator) InitialBuild(ctx context.Context) build.Outcome {
	c.logger.Info(ctx, "Running initial build")
	return c.Rebuild(ctx, "")
}
