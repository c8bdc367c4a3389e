package usecase

import (
	"sync"
	"time"
)

// slidingWindowLimiter - пер-получательский лимит сообщений в скользящем окне.
// Состояние живет в памяти процесса: после рестарта окно пустое, что для
// лимита уведомлений приемлемо - гарантию "не больше одного раза" несет
// журнал доставки, а не лимитер.
type slidingWindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	sent   map[string][]time.Time
}

func newSlidingWindowLimiter(limit int, window time.Duration) *slidingWindowLimiter {
	return &slidingWindowLimiter{
		window: window,
		limit:  limit,
		sent:   make(map[string][]time.Time),
	}
}

// Allow проверяет бюджет получателя и, если он не исчерпан, списывает токен.
func (l *slidingWindowLimiter) Allow(recipientID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.sent[recipientID][:0]
	for _, t := range l.sent[recipientID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.sent[recipientID] = kept
		return false
	}

	l.sent[recipientID] = append(kept, now)
	return true
}
