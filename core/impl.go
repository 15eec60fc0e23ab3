package core

import (
	"maps"
	"slices"
	"sync"
)

type BasicSessionManager struct {
	sessionsById  map[string]*Session
	sessionsMutex sync.RWMutex
}

func NewBasicSessionManager() *BasicSessionManager {
	return &BasicSessionManager{
		sessionsById: make(map[string]*Session),
	}
}

func (m *BasicSessionManager) AddSession(s *Session) error {
	m.sessionsMutex.Lock()
	defer m.sessionsMutex.Unlock()
	if _, ok := m.sessionsById[s.Id()]; ok {
		return ErrSessionExists
	}
	m.sessionsById[s.Id()] = s
	return nil
}

func (m *BasicSessionManager) Session(id string) (*Session, error) {
	m.sessionsMutex.RLock()
	defer m.sessionsMutex.RUnlock()
	s, ok := m.sessionsById[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *BasicSessionManager) ListSessions() []*Session {
	m.sessionsMutex.RLock()
	defer m.sessionsMutex.RUnlock()
	return slices.Collect(maps.Values(m.sessionsById))
}

func (m *BasicSessionManager) RemoveSession(id string) {
	m.sessionsMutex.Lock()
	defer m.sessionsMutex.Unlock()
	delete(m.sessionsById, id)
}
