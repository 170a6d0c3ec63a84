package lesson

import (
	"context"
	"fmt"
	"sync"
)

type recordKey struct {
	sessionID string
	slideID   string
	userID    string
}

type memoryStore struct {
	mu       sync.RWMutex
	lessons  map[string]Lesson
	schemas  map[string]map[string]SlideSchema // lessonID -> slideID -> schema
	sessions map[string]Session
	pacing   map[string]PacingConfig
	resp     map[recordKey]ResponseRecord
	working  map[recordKey]WorkingState
}

// NewMemoryStore returns an in-memory Store for tests and single-process use.
func NewMemoryStore() Store {
	return &memoryStore{
		lessons:  map[string]Lesson{},
		schemas:  map[string]map[string]SlideSchema{},
		sessions: map[string]Session{},
		pacing:   map[string]PacingConfig{},
		resp:     map[recordKey]ResponseRecord{},
		working:  map[recordKey]WorkingState{},
	}
}

func (m *memoryStore) PutLesson(_ context.Context, l Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[l.ID] = l
	return nil
}

func (m *memoryStore) GetLesson(_ context.Context, id string) (Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return Lesson{}, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (m *memoryStore) PutSchema(_ context.Context, lessonID, slideID string, s SlideSchema, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.schemas[lessonID] == nil {
		m.schemas[lessonID] = map[string]SlideSchema{}
	}
	m.schemas[lessonID][slideID] = s
	return nil
}

func (m *memoryStore) GetSchema(_ context.Context, lessonID, slideID string) (SlideSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[lessonID][slideID]
	if !ok {
		return SlideSchema{}, fmt.Errorf("slide %s: %w", slideID, ErrNotFound)
	}
	return s, nil
}

func (m *memoryStore) GetSchemas(_ context.Context, lessonID string) (map[string]SlideSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]SlideSchema, len(m.schemas[lessonID]))
	for k, v := range m.schemas[lessonID] {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) PutSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *memoryStore) GetPacing(_ context.Context, sessionID string) (PacingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pacing[sessionID], nil
}

func (m *memoryStore) PutPacing(_ context.Context, sessionID string, cfg PacingConfig, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pacing[sessionID] = cfg
	return nil
}

func (m *memoryStore) GetResponse(_ context.Context, sessionID, slideID, userID string) (ResponseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resp[recordKey{sessionID, slideID, userID}]
	if !ok {
		return ResponseRecord{}, fmt.Errorf("response %s/%s/%s: %w", sessionID, slideID, userID, ErrNotFound)
	}
	return r, nil
}

func (m *memoryStore) PutResponse(_ context.Context, r ResponseRecord) error {
	if r.Doc.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resp[recordKey{r.SessionID, r.SlideID, r.UserID}] = r
	return nil
}

func (m *memoryStore) ListResponses(_ context.Context, sessionID string) ([]ResponseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ResponseRecord
	for k, r := range m.resp {
		if k.sessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) GetWorkingState(_ context.Context, sessionID, slideID, userID string) (WorkingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.working[recordKey{sessionID, slideID, userID}]
	if !ok {
		return WorkingState{}, fmt.Errorf("working state %s/%s/%s: %w", sessionID, slideID, userID, ErrNotFound)
	}
	return w, nil
}

func (m *memoryStore) PutWorkingState(_ context.Context, w WorkingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[recordKey{w.SessionID, w.SlideID, w.UserID}] = w
	return nil
}

func (m *memoryStore) ListWorkingStates(_ context.Context, sessionID string) ([]WorkingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WorkingState
	for k, w := range m.working {
		if k.sessionID == sessionID {
			out = append(out, w)
		}
	}
	return out, nil
}
