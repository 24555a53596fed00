package pdfrender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRenderer drives an external headless-browser rendering service over
// HTTP. The service accepts HTML plus page options and answers with raw PDF
// bytes.
type HTTPRenderer struct {
	serviceURL string
	client     *http.Client
	timeout    time.Duration
}

// NewHTTPRenderer builds a renderer for the given service URL.
func NewHTTPRenderer(serviceURL string, timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRenderer{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type renderRequest struct {
	HTML    string      `json:"html"`
	Options PageOptions `json:"options"`
}

// Render posts the document to the rendering service and returns the PDF.
// A deadline at the adapter boundary converts hung renders into RenderError
// with Timeout set.
func (r *HTTPRenderer) Render(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(renderRequest{HTML: html, Options: opts})
	if err != nil {
		return nil, &RenderError{Cause: fmt.Errorf("encode render request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL, bytes.NewReader(body))
	if err != nil {
		return nil, &RenderError{Cause: fmt.Errorf("build render request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &RenderError{Cause: err, Timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RenderError{Cause: fmt.Errorf("renderer answered %d: %s", resp.StatusCode, string(snippet))}
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RenderError{Cause: fmt.Errorf("read rendered pdf: %w", err), Timeout: isTimeout(ctx, err)}
	}
	if len(pdf) == 0 {
		return nil, &RenderError{Cause: fmt.Errorf("renderer returned empty document")}
	}
	return pdf, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
