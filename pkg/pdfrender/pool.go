package pdfrender

import (
	"context"
	"fmt"
)

// Pool bounds concurrent access to the rendering engine. Browser-backed
// renderers are expensive shared resources; callers acquire a slot, render,
// and the slot is released on every exit path.
type Pool struct {
	renderer Renderer
	slots    chan struct{}
}

// NewPool wraps a renderer with a bounded slot set.
func NewPool(renderer Renderer, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	slots := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		slots <- struct{}{}
	}
	return &Pool{renderer: renderer, slots: slots}
}

// Render acquires a slot (blocking until one is free or ctx is done), delegates
// to the underlying renderer, and always returns the slot.
func (p *Pool) Render(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, &RenderError{Cause: fmt.Errorf("acquire render slot: %w", ctx.Err()), Timeout: true}
	case <-p.slots:
	}
	defer func() { p.slots <- struct{}{} }()

	return p.renderer.Render(ctx, html, opts)
}

// InUse reports the number of slots currently held.
func (p *Pool) InUse() int {
	return cap(p.slots) - len(p.slots)
}
