package repository

import (
	"context"
	"sync"
)

// subscribers fans out holdings change notifications per user. Callbacks run
// on the notifying goroutine and must not block.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	byUser map[string]map[int]func()
}

func newSubscribers() *subscribers {
	return &subscribers{byUser: make(map[string]map[int]func())}
}

// add registers fn until the returned function is called or ctx is done.
func (s *subscribers) add(ctx context.Context, userID string, fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[int]func())
	}
	s.byUser[userID][id] = fn
	s.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.byUser[userID], id)
			if len(s.byUser[userID]) == 0 {
				delete(s.byUser, userID)
			}
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return func() {
		stop()
		remove()
	}
}

func (s *subscribers) notify(userID string) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.byUser[userID]))
	for _, fn := range s.byUser[userID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *subscribers) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser[userID])
}
