package reminder

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store хранит ещё не доставленные напоминания в памяти.
// Add вызывается из HTTP и бот-хендлеров, DrainDue из Scheduler; доступ к pending только под mu.
type Store struct {
	mu      sync.Mutex
	pending []Reminder
}

func NewStore() *Store {
	return &Store{}
}

// Add кладёт напоминание в хранилище. Время в прошлом допустимо, такое сработает на ближайшем опросе.
func (s *Store) Add(r Reminder) Reminder {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.pending = append(s.pending, r)
	s.mu.Unlock()
	return r
}

// DrainDue возвращает все напоминания с ScheduledAt <= now и сразу удаляет их из хранилища.
func (s *Store) DrainDue(now time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	kept := s.pending[:0]
	for _, r := range s.pending {
		if r.Due(now) {
			due = append(due, r)
			continue
		}
		kept = append(kept, r)
	}
	// обнуляем хвост, чтобы не держать ссылки на строки доставленных напоминаний
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = Reminder{}
	}
	s.pending = kept
	return due
}

// Len количество ожидающих напоминаний
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
