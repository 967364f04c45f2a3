package procedure

import "context"

// Next invokes the remainder of the chain. A middleware may substitute the
// request value c before passing it on.
type Next[C any] func(ctx context.Context, c C) (any, error)

// Middleware runs before the handler and decides whether to call next.
type Middleware[C any] func(ctx context.Context, c C, next Next[C]) (any, error)

// Handler is the terminal stage of a chain.
type Handler[C any] func(ctx context.Context, c C) (any, error)

// Builder is an immutable middleware chain for request values of type C.
type Builder[C any] struct {
	middlewares []Middleware[C]
}

// New returns an empty chain.
func New[C any]() Builder[C] {
	return Builder[C]{}
}

// Use returns a new Builder with mw appended. The receiver is not modified.
func (b Builder[C]) Use(mw Middleware[C]) Builder[C] {
	next := make([]Middleware[C], 0, len(b.middlewares)+1)
	next = append(next, b.middlewares...)
	next = append(next, mw)
	return Builder[C]{middlewares: next}
}

// Len returns the number of middlewares in the chain.
func (b Builder[C]) Len() int {
	return len(b.middlewares)
}

// Handle composes the chain around h. Middlewares run in the order they were
// added.
func (b Builder[C]) Handle(h Handler[C]) Handler[C] {
	chain := b.middlewares
	return func(ctx context.Context, c C) (any, error) {
		return run(ctx, c, chain, h)
	}
}

func run[C any](ctx context.Context, c C, chain []Middleware[C], h Handler[C]) (any, error) {
	if len(chain) == 0 {
		return h(ctx, c)
	}

	called := false
	next := func(ctx context.Context, c C) (any, error) {
		if called {
			return nil, Errorf(CodeInternal, "next called more than once")
		}
		called = true
		return run(ctx, c, chain[1:], h)
	}
	return chain[0](ctx, c, next)
}
