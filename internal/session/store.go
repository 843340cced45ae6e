package session

import "sync"

// Store keeps one Session per conversation token.
//
// Get and Save are individually atomic; callers that read, modify and write a
// session must hold the token's lock for the whole turn.
type Store interface {
	// Get returns a copy of the token's session, or an empty one.
	Get(token string) *Session
	// Save replaces the token's session with a copy of s.
	Save(token string, s *Session) error
	// Clear removes the token's session.
	Clear(token string)
	// Lock serializes turns for one token until the returned func is called.
	Lock(token string) (unlock func())
	// Len returns the number of stored sessions.
	Len() int
}

// MemoryStore is an in-process Store. State does not survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    newKeyedMutex(),
	}
}

func (s *MemoryStore) Get(token string) *Session {
	if token == "" {
		return New()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return New()
	}
	return sess.Clone()
}

func (s *MemoryStore) Save(token string, sess *Session) error {
	if token == "" {
		return ErrNoToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.IsEmpty() {
		delete(s.sessions, token)
		return nil
	}
	s.sessions[token] = sess.Clone()
	return nil
}

func (s *MemoryStore) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *MemoryStore) Lock(token string) func() {
	if token == "" {
		return func() {}
	}
	return s.locks.lock(token)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// keyedMutex hands out one mutex per key and forgets it once no turn holds
// or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
