package session

import "sync"

// Manager держит по одной сессии и одному мьютексу на заявку.
// Не больше одной мутирующей команды на заявку одновременно;
// чтения не ограничиваются.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Session возвращает (создавая при необходимости) сессию заявки.
func (m *Manager) Session(requestID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[requestID]
	if !ok {
		s = New(requestID)
		m.sessions[requestID] = s
	}
	return s
}

// Lock берёт мьютекс заявки и возвращает функцию разблокировки.
func (m *Manager) Lock(requestID string) func() {
	m.mu.Lock()
	l, ok := m.locks[requestID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[requestID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Drop забывает сессию заявки (после удаления/отмены). Мьютекс остаётся:
// команда, уже ждущая на нём, не должна получить свежий незанятый мьютекс
// и пройти параллельно с держателем старого.
func (m *Manager) Drop(requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, requestID)
}
