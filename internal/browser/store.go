package browser

import (
	"sync"
	"time"
)

const DefaultStaleAfter = time.Minute

type entry struct {
	result string
	at     time.Time
}

// Store correlates observed results with the text that produced them.
// Results for the same text are queued FIFO so that concurrent identical
// queries each receive one. Entries nobody claims expire after staleAfter.
type Store struct {
	mu         sync.Mutex
	entries    map[string][]entry
	staleAfter time.Duration
	now        func() time.Time
}

func NewStore(staleAfter time.Duration) *Store {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Store{
		entries:    make(map[string][]entry),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Put records a result for text whether or not anyone is waiting for it.
func (s *Store) Put(text, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[text] = append(s.entries[text], entry{result: result, at: s.now()})
}

// Take removes and returns the oldest fresh result for text.
func (s *Store) Take(text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.freshLocked(text)
	if len(queue) == 0 {
		return "", false
	}

	result := queue[0].result
	if len(queue) == 1 {
		delete(s.entries, text)
	} else {
		s.entries[text] = queue[1:]
	}
	return result, true
}

// Len returns the number of unclaimed results.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, queue := range s.entries {
		n += len(queue)
	}
	return n
}

// Prune drops stale results and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for text, queue := range s.entries {
		before := len(queue)
		removed += before - len(s.freshLocked(text))
	}
	return removed
}

func (s *Store) freshLocked(text string) []entry {
	queue := s.entries[text]
	cutoff := s.now().Add(-s.staleAfter)

	i := 0
	for i < len(queue) && queue[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return queue
	}

	queue = queue[i:]
	if len(queue) == 0 {
		delete(s.entries, text)
	} else {
		s.entries[text] = queue
	}
	return queue
}
