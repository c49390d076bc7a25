package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMemoryGetSetDelete(t *testing.T) {
	t.Parallel()

	m := NewMemory(15*time.Minute, zerolog.Nop())

	if got := m.Get(1); got != nil {
		t.Fatalf("Get on empty store = %+v, want nil", got)
	}

	s := &Session{State: StateShowingOptions, CreatedAt: time.Now()}
	m.Set(1, s)
	if got := m.Get(1); got != s {
		t.Fatalf("Get = %+v, want the stored session", got)
	}
	if got := m.Get(2); got != nil {
		t.Fatalf("Get(other user) = %+v, want nil", got)
	}

	// новая сессия молча перекрывает старую
	s2 := &Session{State: StateAwaitingISBN, CreatedAt: time.Now()}
	m.Set(1, s2)
	if got := m.Get(1); got != s2 {
		t.Fatalf("Get after overwrite = %+v, want the newer session", got)
	}

	m.Delete(1)
	if got := m.Get(1); got != nil {
		t.Fatalf("Get after Delete = %+v, want nil", got)
	}
	// повторное удаление безвредно
	m.Delete(1)
}

func TestMemorySweep(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(15*time.Minute, zerolog.Nop())
	m.now = func() time.Time { return base }

	m.Set(1, &Session{State: StateShowingOptions, CreatedAt: base.Add(-20 * time.Minute)})
	m.Set(2, &Session{State: StateAwaitingTitle, CreatedAt: base.Add(-14 * time.Minute)})
	m.Set(3, &Session{State: StateAwaitingISBN, CreatedAt: base})

	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if m.Get(1) != nil {
		t.Fatal("expired session survived the sweep")
	}
	if m.Get(2) == nil || m.Get(3) == nil {
		t.Fatal("live sessions must survive the sweep")
	}

	// до прохода уборщика протухшая сессия остаётся читаемой
	m.Set(4, &Session{State: StateShowingOptions, CreatedAt: base.Add(-time.Hour)})
	if m.Get(4) == nil {
		t.Fatal("Get must not expire sessions on its own")
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}
	if m.Get(3) == nil {
		t.Fatal("session within ttl must survive")
	}
}
