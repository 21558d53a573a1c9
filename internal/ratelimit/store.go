package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store хранит token-bucket лимитеры по ключу (telegram id, user id, IP)
// и периодически удаляет неактивные ключи
type Store struct {
	mu           sync.Mutex
	entries      map[string]*entry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type Option func(*Store)

func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(s *Store) { s.cleanupEvery = d }
}

// NewStore создаёт хранилище. rps <= 0 отключает ограничение.
func NewStore(rps float64, burst int, opts ...Option) *Store {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	s := &Store{
		entries:      make(map[string]*entry),
		rps:          limit,
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow сообщает, можно ли выполнить действие по ключу прямо сейчас
func (s *Store) Allow(key string) bool {
	return s.get(key).AllowN(s.now(), 1)
}

// RetryAfter сколько ждать до следующего токена по ключу
func (s *Store) RetryAfter(key string) time.Duration {
	lim := s.get(key)
	r := lim.ReserveN(s.now(), 1)
	if !r.OK() {
		return 0
	}
	d := r.DelayFrom(s.now())
	r.CancelAt(s.now())
	return d
}

func (s *Store) get(key string) *rate.Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &entry{lim: lim, lastSeen: now}
	return lim
}

// Len количество отслеживаемых ключей
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup удаляет ключи, не использовавшиеся дольше idleTTL
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Run периодически чистит неактивные ключи до отмены ctx
func (s *Store) Run(ctx context.Context) error {
	if s.cleanupEvery <= 0 {
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(s.cleanupEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Cleanup()
		}
	}
}
