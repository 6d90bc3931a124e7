package stoplight

import "sync"

// Signal is a one-shot completion marker.
type Signal struct {
	once sync.Once
	c    chan struct{}
}

func newSignal() *Signal {
	return &Signal{c: make(chan struct{})}
}

func (s *Signal) Complete() {
	s.once.Do(func() {
		close(s.c)
	})
}

func (s *Signal) Await() <-chan struct{} {
	return s.c
}
