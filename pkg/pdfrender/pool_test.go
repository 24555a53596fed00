package pdfrender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	mu      sync.Mutex
	active  int
	peak    int
	delay   time.Duration
	fail    bool
	payload []byte
}

func (s *stubRenderer) Render(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	if s.fail {
		return nil, &RenderError{Cause: errors.New("boom")}
	}
	if s.payload != nil {
		return s.payload, nil
	}
	return []byte("%PDF-1.4"), nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	stub := &stubRenderer{delay: 20 * time.Millisecond}
	pool := NewPool(stub, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.Render(context.Background(), "<html></html>", PageOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, stub.peak, 2)
	assert.Equal(t, 0, pool.InUse())
}

func TestPoolReleasesSlotOnFailure(t *testing.T) {
	stub := &stubRenderer{fail: true}
	pool := NewPool(stub, 1)

	for i := 0; i < 3; i++ {
		_, err := pool.Render(context.Background(), "<html></html>", PageOptions{})
		require.Error(t, err)
	}
	assert.Equal(t, 0, pool.InUse())
}

func TestPoolHonoursContextWhileWaiting(t *testing.T) {
	stub := &stubRenderer{delay: 200 * time.Millisecond}
	pool := NewPool(stub, 1)

	go func() {
		_, _ = pool.Render(context.Background(), "<html></html>", PageOptions{})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := pool.Render(ctx, "<html></html>", PageOptions{})
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.True(t, renderErr.Timeout)
}

func TestLocalRendererProducesDocument(t *testing.T) {
	r := NewLocalRenderer()
	pdf, err := r.Render(context.Background(), "<html><body><h1>Report</h1><p>Kim Minji</p></body></html>", PageOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
