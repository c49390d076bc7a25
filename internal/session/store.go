package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store — хранилище сессий подтверждения, не больше одной на пользователя.
// Set поверх живой сессии — это last-write-wins: новый отзыв того же
// пользователя молча перекрывает незавершённый диалог.
type Store interface {
	Get(userID int64) *Session
	Set(userID int64, s *Session)
	Delete(userID int64)
}

// Memory — реализация Store в памяти процесса с фоновой уборкой протухших
// сессий. Чтение срок жизни не проверяет: до прохода уборщика старая сессия
// остаётся рабочей.
type Memory struct {
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger

	mu     sync.Mutex
	byUser map[int64]*Session
}

func NewMemory(ttl time.Duration, log zerolog.Logger) *Memory {
	return &Memory{
		ttl:    ttl,
		now:    time.Now,
		log:    log.With().Str("component", "session").Logger(),
		byUser: make(map[int64]*Session),
	}
}

func (m *Memory) Get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUser[userID]
}

func (m *Memory) Set(userID int64, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = s
}

func (m *Memory) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
}

// Sweep удаляет сессии старше TTL, возвращает число удалённых.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for uid, s := range m.byUser {
		if s.CreatedAt.Before(cutoff) {
			delete(m.byUser, uid)
			removed++
		}
	}
	return removed
}

// Run гоняет уборку по тикеру до отмены контекста.
func (m *Memory) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug().Int("removed", n).Msg("stale sessions swept")
			}
		}
	}
}
