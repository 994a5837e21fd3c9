package testutil

import (
	"crypto/rand"
	"sync"
	"time"
)

// GenerateRandomData generates random data of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// Sleeper is a backoff sleep that fires immediately and records every wait.
type Sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns a channel that has already fired.
func (s *Sleeper) Sleep(d time.Duration) <-chan time.Time {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// Delays returns the recorded waits.
func (s *Sleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
