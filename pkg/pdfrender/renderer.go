package pdfrender

import (
	"context"
	"fmt"
)

// PageOptions carries the page setup forwarded to the rendering engine.
type PageOptions struct {
	Format          string `json:"format"`
	MarginTop       string `json:"marginTop,omitempty"`
	MarginBottom    string `json:"marginBottom,omitempty"`
	MarginLeft      string `json:"marginLeft,omitempty"`
	MarginRight     string `json:"marginRight,omitempty"`
	PrintBackground bool   `json:"printBackground"`
}

// Renderer turns final HTML into PDF bytes. Implementations are expected to be
// safe for concurrent use; throttling is the pool's job, not theirs.
type Renderer interface {
	Render(ctx context.Context, html string, opts PageOptions) ([]byte, error)
}

// RenderError wraps any failure at the renderer boundary, including timeouts.
type RenderError struct {
	Cause   error
	Timeout bool
}

func (e *RenderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("render timed out: %v", e.Cause)
	}
	return fmt.Sprintf("render failed: %v", e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }
