package domain

import "context"

// Engine turns a batch of sentences into histories. Engines are stateful and
// expensive to build; an instance must only ever be used by the worker that
// built it. An Engine that also implements io.Closer is closed when its owner
// releases it.
type Engine interface {
	Decode(ctx context.Context, sentences Sentences) (Histories, error)
}

// EngineFactory builds an Engine for the model identified by taskID.
type EngineFactory interface {
	NewEngine(ctx context.Context, taskID int64) (Engine, error)
}

// EngineFactoryFunc adapts a function to EngineFactory.
type EngineFactoryFunc func(ctx context.Context, taskID int64) (Engine, error)

// NewEngine calls f(ctx, taskID).
func (f EngineFactoryFunc) NewEngine(ctx context.Context, taskID int64) (Engine, error) {
	return f(ctx, taskID)
}
