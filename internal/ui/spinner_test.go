package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerRendersLatestMessage(t *testing.T) {
	var out syncBuffer
	s := NewSpinner(&out, false)
	s.Start("Searching...")
	s.Update("Found 10 items")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Equal(t, true, strings.Contains(out.String(), "Found 10 items"))
	assert.Equal(t, true, strings.HasSuffix(out.String(), "\r\033[K"))
}

func TestQuietSpinnerWritesNothing(t *testing.T) {
	var out syncBuffer
	s := NewSpinner(&out, true)
	s.Start("Searching...")
	s.Update("done")
	s.Stop()

	assert.Equal(t, "", out.String())
	assert.Equal(t, "done", s.Last())
}
