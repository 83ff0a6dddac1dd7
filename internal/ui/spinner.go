package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner displays an animated progress indicator, normally on stderr.
// A quiet spinner only remembers the latest message.
type Spinner struct {
	w     io.Writer
	quiet bool

	mu   sync.Mutex
	msg  string
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a new Spinner (not yet running).
func NewSpinner(w io.Writer, quiet bool) *Spinner {
	return &Spinner{w: w, quiet: quiet}
}

// Start begins the spinner animation with the given message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	s.msg = msg
	if s.quiet || s.done != nil {
		s.mu.Unlock()
		return
	}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(done)
}

// Update changes the spinner message while it's running.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Last returns the most recent message.
func (s *Spinner) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
	fmt.Fprintf(s.w, "\r\033[K")
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-tick.C:
			fmt.Fprintf(s.w, "\r\033[K%c %s", frames[i%len(frames)], s.Last())
		}
	}
}
