package app

import (
	"sync"
	"time"
)

// ==========================================
// СОСТОЯНИЕ ДИАЛОГА
// ==========================================

type Mode string

const (
	ModeMenu Mode = "menu"
	ModeAI   Mode = "ai"
)

type ScreenKind int

const (
	ScreenRoleSelect ScreenKind = iota
	ScreenDirectionSelect
	ScreenDirectionOptions
	ScreenCountrySelect
	ScreenUniversityList
	ScreenDirectionResults
	ScreenUniversityDetail
	ScreenReference
	ScreenReferenceTopic
	ScreenAIQuery
)

// Screen — экран навигации с параметрами. Значение, а не указатель:
// история хранит копии и никто не мутирует экран задним числом.
type Screen struct {
	Kind       ScreenKind
	Country    string
	University string
	Direction  string
	Topic      string
}

// SessionState — всё изменяемое состояние одного чата.
// History никогда не содержит текущий экран — только предков.
// Expanded имеет смысл только пока выбран университет и сбрасывается
// при выборе другого.
type SessionState struct {
	ChatID     int64
	Role       string
	Direction  string
	Country    string
	University string
	Current    Screen
	History    []Screen
	Expanded   map[string]bool
	Mode       Mode
	UpdatedAt  time.Time

	mu sync.Mutex
}

func newSessionState(chatID int64) *SessionState {
	return &SessionState{
		ChatID:    chatID,
		Current:   Screen{Kind: ScreenRoleSelect},
		Expanded:  make(map[string]bool),
		Mode:      ModeMenu,
		UpdatedAt: time.Now(),
	}
}

// WithLock сериализует все мутации одного чата. Между разными чатами
// блокировки независимы.
func (s *SessionState) WithLock(fn func(*SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
	s.UpdatedAt = time.Now()
}

func (s *SessionState) push(scr Screen) {
	s.History = append(s.History, scr)
}

func (s *SessionState) pop() (Screen, bool) {
	if len(s.History) == 0 {
		return Screen{}, false
	}
	last := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return last, true
}

// ==========================================
// МЕНЕДЖЕР СЕССИЙ
// ==========================================

type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*SessionState
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[int64]*SessionState)}
}

// Get создает сессию с дефолтами при первом обращении.
func (sm *SessionManager) Get(chatID int64) *SessionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[chatID]
	if !ok {
		s = newSessionState(chatID)
		sm.sessions[chatID] = s
	}
	return s
}

// Reset возвращает сессию к начальному состоянию (экран выбора роли,
// пустая история).
func (sm *SessionManager) Reset(chatID int64) *SessionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s := newSessionState(chatID)
	sm.sessions[chatID] = s
	return s
}

func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// CleanupStale выбрасывает сессии, к которым давно не прикасались.
func (sm *SessionManager) CleanupStale(maxAge time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, s := range sm.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}
